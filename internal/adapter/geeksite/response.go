package geeksite

import "encoding/xml"

// Subtypes used by the detail API's rank and link entries.
const (
	SubtypePrimary   = "boardgame"
	SubtypeExpansion = "boardgameexpansion"

	LinkCategory  = "boardgamecategory"
	LinkMechanic  = "boardgamemechanic"
	LinkFamily    = "boardgamefamily"
	LinkExpansion = "boardgameexpansion"
)

// itemsEnvelope is the response container. Requested identifiers each
// contribute one <item>; a single-item response still decodes into a
// one-element slice, so list-vs-scalar never leaks past this boundary.
type itemsEnvelope struct {
	XMLName xml.Name `xml:"items"`
	Items   []Item   `xml:"item"`
}

// Item is one catalog entry as the detail API describes it. Attribute
// values stay strings here; the transformer owns numeric interpretation
// so that "0", "" and garbage all normalize the same way.
type Item struct {
	ID   int64  `xml:"id,attr"`
	Type string `xml:"type,attr"`

	Names         []Name        `xml:"name"`
	YearPublished ValueAttr     `xml:"yearpublished"`
	MinPlayers    ValueAttr     `xml:"minplayers"`
	MaxPlayers    ValueAttr     `xml:"maxplayers"`
	PlayingTime   ValueAttr     `xml:"playingtime"`
	MinPlaytime   ValueAttr     `xml:"minplaytime"`
	MaxPlaytime   ValueAttr     `xml:"maxplaytime"`
	MinAge        ValueAttr     `xml:"minage"`
	Links         []Link        `xml:"link"`
	Polls         []Poll        `xml:"poll"`
	PollSummaries []PollSummary `xml:"poll-summary"`
	Statistics    Statistics    `xml:"statistics"`
}

// Name is one name entry; type is "primary" or "alternate".
type Name struct {
	Type  string `xml:"type,attr"`
	Value string `xml:"value,attr"`
}

// ValueAttr is the API's scalar-in-an-attribute idiom: <minage value="12"/>.
type ValueAttr struct {
	Value string `xml:"value,attr"`
}

// Link is a taxonomy or relationship edge attached to an item.
type Link struct {
	Type    string `xml:"type,attr"`
	ID      int64  `xml:"id,attr"`
	Value   string `xml:"value,attr"`
	Inbound string `xml:"inbound,attr"`
}

// Poll is a vote tally, e.g. suggested_playerage.
type Poll struct {
	Name       string        `xml:"name,attr"`
	TotalVotes string        `xml:"totalvotes,attr"`
	Results    []PollResults `xml:"results"`
}

// PollResults groups result entries, optionally per player count.
type PollResults struct {
	NumPlayers string       `xml:"numplayers,attr"`
	Result     []PollResult `xml:"result"`
}

// PollResult is one vote bucket.
type PollResult struct {
	Value    string `xml:"value,attr"`
	NumVotes string `xml:"numvotes,attr"`
}

// PollSummary carries the API's pre-digested free-text poll outcomes,
// e.g. "Best with 4 players".
type PollSummary struct {
	Name    string              `xml:"name,attr"`
	Results []PollSummaryResult `xml:"result"`
}

// PollSummaryResult is one named free-text summary value.
type PollSummaryResult struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// Statistics wraps the ratings block (requires stats=1 on the request).
type Statistics struct {
	Ratings Ratings `xml:"ratings"`
}

// Ratings holds the numeric aggregates and rank entries.
type Ratings struct {
	Average       ValueAttr `xml:"average"`
	BayesAverage  ValueAttr `xml:"bayesaverage"`
	AverageWeight ValueAttr `xml:"averageweight"`
	Ranks         Ranks     `xml:"ranks"`
}

// Ranks wraps the rank list.
type Ranks struct {
	Rank []RankEntry `xml:"rank"`
}

// RankEntry is one rank row; Value is "Not Ranked" for unranked items.
type RankEntry struct {
	Type  string `xml:"type,attr"`
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// PrimaryName returns the name entry typed "primary", falling back to
// the first entry. The API sometimes emits exactly one name without the
// primary marker; coercing here keeps that inconsistency out of the
// transformer.
func (it Item) PrimaryName() string {
	for _, n := range it.Names {
		if n.Type == "primary" {
			return n.Value
		}
	}
	if len(it.Names) > 0 {
		return it.Names[0].Value
	}
	return ""
}
