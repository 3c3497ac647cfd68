//go:build e2e

package e2e_test

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/meeplelog/catalog-sync/internal/adapter/geeksite"
	"github.com/meeplelog/catalog-sync/internal/adapter/postgres"
	"github.com/meeplelog/catalog-sync/internal/adapter/postgres/catalog"
	"github.com/meeplelog/catalog-sync/internal/adapter/postgres/testhelper"
	"github.com/meeplelog/catalog-sync/internal/app/sync"
)

const (
	siteUsername = "syncbot"
	sitePassword = "hunter2"

	sessionCookie = "bggsession"
)

// fakeSite emulates the catalog site end to end: JSON login, the
// data-dumps landing page, the zip download and the XML detail API.
type fakeSite struct {
	server *httptest.Server

	csv        string
	loginCalls int
	thingCalls int
}

func newFakeSite(t *testing.T, csv string) *fakeSite {
	t.Helper()

	site := &fakeSite{csv: csv}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login/api/v1", site.handleLogin)
	mux.HandleFunc("GET /data_dumps/bg_ranks", site.handleExportPage)
	mux.HandleFunc("GET /data_dumps/bg_ranks_current.zip", site.handleDownload)
	mux.HandleFunc("GET /xmlapi2/thing", site.handleThing)

	site.server = httptest.NewServer(mux)
	t.Cleanup(site.server.Close)
	return site
}

func (s *fakeSite) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.loginCalls++

	var req struct {
		Credentials struct {
			Username string `json:"username"`
			Password string `json:"password"`
		} `json:"credentials"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if req.Credentials.Username != siteUsername || req.Credentials.Password != sitePassword {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "e2e-session"})
	w.WriteHeader(http.StatusOK)
}

func (s *fakeSite) loggedIn(r *http.Request) bool {
	c, err := r.Cookie(sessionCookie)
	return err == nil && c.Value == "e2e-session"
}

func (s *fakeSite) handleExportPage(w http.ResponseWriter, r *http.Request) {
	if !s.loggedIn(r) {
		// The real site serves the page without a download link to
		// anonymous visitors.
		fmt.Fprint(w, `<html><body><p>Please log in.</p></body></html>`)
		return
	}
	fmt.Fprint(w, `<html><body>
		<h1>Data dumps</h1>
		<a href="/data_dumps/bg_ranks_current.zip" download="boardgames_ranks.csv.zip">Download</a>
	</body></html>`)
}

func (s *fakeSite) handleDownload(w http.ResponseWriter, r *http.Request) {
	if !s.loggedIn(r) {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("boardgames_ranks.csv")
	if err == nil {
		_, err = io.WriteString(f, s.csv)
	}
	if err != nil || zw.Close() != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Write(buf.Bytes())
}

func (s *fakeSite) handleThing(w http.ResponseWriter, r *http.Request) {
	s.thingCalls++

	w.Header().Set("Content-Type", "text/xml")
	fmt.Fprint(w, `<?xml version="1.0" encoding="utf-8"?><items>`)
	for _, id := range strings.Split(r.URL.Query().Get("id"), ",") {
		fmt.Fprint(w, itemXML(id))
	}
	fmt.Fprint(w, `</items>`)
}

// itemXML renders one detail-API item. Game 926 is an expansion of 13;
// everything else is a ranked base game.
func itemXML(id string) string {
	if id == "926" {
		return `<item type="boardgameexpansion" id="926">
			<name type="primary" value="Catan: Seafarers"/>
			<yearpublished value="1997"/>
			<link type="boardgameexpansion" id="13" value="Catan" inbound="true"/>
			<statistics><ratings>
				<average value="7.0"/><bayesaverage value="6.8"/><averageweight value="2.3"/>
				<ranks><rank type="subtype" name="boardgame" value="Not Ranked"/></ranks>
			</ratings></statistics>
		</item>`
	}

	links := ""
	if id == "13" {
		links = `<link type="boardgameexpansion" id="926" value="Catan: Seafarers"/>`
	}
	return `<item type="boardgame" id="` + id + `">
		<name type="primary" value="Game ` + id + `"/>
		<yearpublished value="1995"/>
		<minplayers value="3"/><maxplayers value="4"/>
		<playingtime value="120"/><minplaytime value="60"/><maxplaytime value="120"/>
		<minage value="10"/>
		<link type="boardgamecategory" id="1021" value="Economic"/>
		<link type="boardgamemechanic" id="2072" value="Dice Rolling"/>
		` + links + `
		<poll name="suggested_playerage" totalvotes="10">
			<results>
				<result value="8" numvotes="4"/>
				<result value="10" numvotes="6"/>
			</results>
		</poll>
		<poll-summary name="suggested_numplayers">
			<result name="bestwith" value="Best with 4 players"/>
			<result name="recommmendedwith" value="Recommended with 3&#8211;4 players"/>
		</poll-summary>
		<statistics><ratings>
			<average value="7.5"/><bayesaverage value="7.1"/><averageweight value="2.5"/>
			<ranks><rank type="subtype" name="boardgame" value="` + id + `"/></ranks>
		</ratings></statistics>
	</item>`
}

// newPipeline wires a full pipeline against the fake site and a real
// database, mirroring the production composition in cmd/sync.
func newPipeline(t *testing.T, site *fakeSite, password string, cfg sync.Config) (*sync.Pipeline, *catalog.Repo, *pgxpool.Pool) {
	t.Helper()

	pool := testhelper.SetupTestDB(t)
	repo := catalog.New(pool, postgres.NewTxManager(pool))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	retry := geeksite.RetryPolicy{Cooldown: 10 * time.Millisecond, MaxAttempts: 2}
	httpClient := site.server.Client()

	auth := geeksite.NewAuthenticator(site.server.URL+"/login/api/v1", httpClient, retry, logger)
	locator := geeksite.NewLocator(site.server.URL+"/data_dumps/bg_ranks", httpClient, retry, logger)
	extractor := geeksite.NewExtractor(httpClient, retry, logger)
	enricher := geeksite.NewEnrichmentClient(site.server.URL+"/xmlapi2", httpClient, 10*time.Millisecond, logger)

	cfg.Username = siteUsername
	cfg.Password = password

	require.NotZero(t, cfg.EnrichBatchSize, "test must set EnrichBatchSize")
	return sync.NewPipeline(logger, auth, locator, extractor, enricher, repo, cfg), repo, pool
}
