package sync

import (
	"strconv"
	"strings"

	"github.com/meeplelog/catalog-sync/internal/adapter/geeksite"
	"github.com/meeplelog/catalog-sync/internal/domain"
)

const (
	mechanicCooperative = "Cooperative Game"
	mechanicTeamBased   = "Team-Based Game"

	pollSuggestedAge      = "suggested_playerage"
	pollSummaryNumPlayers = "suggested_numplayers"
	summaryBestWith       = "bestwith"
)

// Transform maps one detail API item onto the normalized catalog shape
// plus the expansion links it implies. Links are produced only for base
// games, never for items that are themselves expansions.
func Transform(it geeksite.Item) (domain.CatalogItem, []domain.ExpansionLink) {
	item := domain.CatalogItem{
		GameID:      it.ID,
		Name:        it.PrimaryName(),
		IsExpansion: it.Type == geeksite.SubtypeExpansion,

		YearPublished: domain.IntOrNil(it.YearPublished.Value),
		MinPlayers:    domain.IntOrNil(it.MinPlayers.Value),
		MaxPlayers:    domain.IntOrNil(it.MaxPlayers.Value),
		PlayingTime:   domain.IntOrNil(it.PlayingTime.Value),
		MinPlaytime:   domain.IntOrNil(it.MinPlaytime.Value),
		MaxPlaytime:   domain.IntOrNil(it.MaxPlaytime.Value),
		MinAge:        domain.IntOrNil(it.MinAge.Value),

		Average:      domain.FloatOrNil(it.Statistics.Ratings.Average.Value),
		BayesAverage: domain.FloatOrNil(it.Statistics.Ratings.BayesAverage.Value),
		Weight:       domain.FloatOrNil(it.Statistics.Ratings.AverageWeight.Value),

		Rank:         primaryRank(it.Statistics.Ratings.Ranks.Rank),
		SuggestedAge: suggestedAge(it.Polls),
	}

	for _, l := range it.Links {
		switch l.Type {
		case geeksite.LinkCategory:
			item.Categories = append(item.Categories, l.Value)
		case geeksite.LinkMechanic:
			item.Mechanics = append(item.Mechanics, l.Value)
			switch l.Value {
			case mechanicCooperative:
				item.IsCooperative = true
			case mechanicTeamBased:
				item.IsTeamBased = true
			}
		case geeksite.LinkFamily:
			item.Families = append(item.Families, l.Value)
		}
	}

	item.BestPlayers, item.RecommendedPlayers = playerSummaries(it.PollSummaries)

	var links []domain.ExpansionLink
	if !item.IsExpansion {
		for _, l := range it.Links {
			// Inbound expansion links point at the base game from the
			// expansion's side; only outbound ones name real expansions.
			if l.Type == geeksite.LinkExpansion && l.Inbound != "true" {
				links = append(links, domain.ExpansionLink{BaseID: it.ID, ExpansionID: l.ID})
			}
		}
	}

	return item, links
}

// primaryRank picks the rank entry for the primary game subtype. Other
// rank rows (strategy, family, ...) are genre sub-rankings and ignored.
// "Not Ranked" fails integer parsing and so comes out nil.
func primaryRank(ranks []geeksite.RankEntry) *int {
	for _, r := range ranks {
		if r.Name == geeksite.SubtypePrimary {
			return domain.IntOrNil(r.Value)
		}
	}
	return nil
}

// suggestedAge computes the vote-weighted mean of the suggested player
// age poll. A poll with zero total votes yields nil, not zero.
func suggestedAge(polls []geeksite.Poll) *float64 {
	for _, p := range polls {
		if p.Name != pollSuggestedAge {
			continue
		}
		var votes, weighted float64
		for _, rs := range p.Results {
			for _, r := range rs.Result {
				n, err := strconv.Atoi(r.NumVotes)
				if err != nil || n <= 0 {
					continue
				}
				// Bucket labels like "21 and up" carry the age up front.
				age, ok := domain.LeadingInt(r.Value)
				if !ok {
					continue
				}
				votes += float64(n)
				weighted += float64(age) * float64(n)
			}
		}
		if votes == 0 {
			return nil
		}
		v := weighted / votes
		return &v
	}
	return nil
}

// playerSummaries extracts the best-with and recommended-with player
// counts from the free-text poll summaries. The API spells the latter
// key "recommmendedwith"; matching on the stable prefix tolerates both
// that and a future fix.
func playerSummaries(summaries []geeksite.PollSummary) (best, recommended *string) {
	for _, s := range summaries {
		if s.Name != pollSummaryNumPlayers {
			continue
		}
		for _, r := range s.Results {
			switch {
			case r.Name == summaryBestWith:
				best = sanitizePlayers(r.Value)
			case strings.HasPrefix(r.Name, "recomm"):
				recommended = sanitizePlayers(r.Value)
			}
		}
	}
	return best, recommended
}

// sanitizePlayers reduces "Best with 2–4 players" to "2-4". The en
// dash is the API's usual range separator; everything but digits, comma,
// plus and hyphen is dropped. Best effort: an empty result is nil.
func sanitizePlayers(s string) *string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '+', r == '-':
			b.WriteRune(r)
		case r == '–':
			b.WriteByte('-')
		}
	}
	out := b.String()
	if out == "" {
		return nil
	}
	return &out
}
