package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/encheres-immo/scraper/internal/config"
	"github.com/encheres-immo/scraper/internal/progress"
	"github.com/encheres-immo/scraper/internal/scrapeerr"
	"github.com/encheres-immo/scraper/internal/store"
)

const indexHTML = `<html><body><div id="courts">
	<h3><span>Île-de-France</span></h3>
	<a href="/ventes-judiciaires-immobilieres/tj-paris/">Tribunal Judiciaire de Paris <span class="Count">1</span></a>
</div></body></html>`

const hearingHTML = `<html><body>
	<ul class="AdResults">
		<li>
			<a class="Ad" href="/annonce/appartement/106898.html">
				<p class="Location">
					<span class="Number">75</span>
					<span class="City">Paris</span>
				</p>
				<p class="Description">
					<span class="Name">Appartement</span>
					<span class="Text">Bel appartement</span>
				</p>
				<div class="Footer">
					<div class="Price"><p class="Price"><span class="PriceNumber">220 000 EUR</span></p></div>
				</div>
			</a>
			<p class="PublishingDate">12 mars 2026</p>
		</li>
	</ul>
</body></html>`

func newTestOrchestrator(t *testing.T, mux *http.ServeMux) (*Orchestrator, *store.Store, string) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.Defaults()
	cfg.BaseURL = srv.URL
	cfg.MinDelaySeconds = 0
	cfg.MaxDelaySeconds = 0
	cfg.MaxRetries = 0
	cfg.DataPath = t.TempDir()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	st, err := store.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return New(cfg, st), st, cfg.DataPath
}

func TestRunIncrementalUpsertsListingsAndMarksStoreState(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(config.Defaults().IndexPath, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexHTML))
	})
	mux.HandleFunc("/ventes-judiciaires-immobilieres/tj-paris/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(hearingHTML))
	})

	orch, st, _ := newTestOrchestrator(t, mux)

	err := orch.RunIncremental(context.Background())
	require.NoError(t, err)

	refs, err := st.GetListingsWithoutDetail(-1)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, 106898, refs[0].LicitorID)
}

const indexTwoTribunalsHTML = `<html><body><div id="courts">
	<h3><span>Île-de-France</span></h3>
	<a href="/ventes-judiciaires-immobilieres/tj-paris/">Tribunal Judiciaire de Paris <span class="Count">1</span></a>
	<a href="/ventes-judiciaires-immobilieres/tj-marseille/">Tribunal Judiciaire de Marseille <span class="Count">1</span></a>
</div></body></html>`

func TestRunIncrementalStopsMidWalkWhenCancelRequested(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(config.Defaults().IndexPath, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexTwoTribunalsHTML))
	})

	var dataPath string
	marseilleCalls := 0
	mux.HandleFunc("/ventes-judiciaires-immobilieres/tj-paris/", func(w http.ResponseWriter, r *http.Request) {
		// Simulate an operator requesting cancellation while the first
		// tribunal's hearing is being fetched.
		require.NoError(t, writeCancelFlag(dataPath))
		w.Write([]byte(hearingHTML))
	})
	mux.HandleFunc("/ventes-judiciaires-immobilieres/tj-marseille/", func(w http.ResponseWriter, r *http.Request) {
		marseilleCalls++
		w.Write([]byte(hearingHTML))
	})

	orch, _, dp := newTestOrchestrator(t, mux)
	dataPath = dp

	err := orch.RunIncremental(context.Background())
	require.Error(t, err)
	require.Equal(t, 0, marseilleCalls, "cancellation observed before the second tribunal should skip its hearing fetch")
}

func writeCancelFlag(dataPath string) error {
	return os.WriteFile(filepath.Join(dataPath, "scrape_cancel.flag"), nil, 0644)
}

const detailHTML = `<html><body><div class="AdContent">
	<p class="Court">Tribunal Judiciaire de Paris</p>
	<p class="Date"><time datetime="2026-02-12T14:00:00">jeudi 12 février 2026 à 14h</time></p>
	<section class="AddressBlock">
		<div class="Lot">
			<div class="SousLot"><h2>Appartement</h2><p>Un appartement de 65,5 m²</p></div>
			<h3>Mise à prix : 220 000 €</h3>
		</div>
		<div class="Location"><p class="City">Paris (Paris)</p></div>
	</section>
</div></body></html>`

func TestRunFullDetailsEveryListingAndFinishes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(config.Defaults().IndexPath, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexHTML))
	})
	mux.HandleFunc("/ventes-judiciaires-immobilieres/tj-paris/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(hearingHTML))
	})
	mux.HandleFunc("/annonce/appartement/106898.html", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(detailHTML))
	})

	orch, st, dataPath := newTestOrchestrator(t, mux)

	require.NoError(t, orch.RunFull(context.Background()))

	refs, err := st.GetListingsWithoutDetail(-1)
	require.NoError(t, err)
	require.Empty(t, refs, "every touched listing should have its detail filled by the end of a full run")

	snap, err := progress.Read(dataPath)
	require.NoError(t, err)
	require.Equal(t, progress.StatusFinished, snap.Status)
	require.Equal(t, 5, snap.PhaseNumber)
	require.Equal(t, 5, snap.PhaseTotal)
}

const historyIndexHTML = `<html><body><div id="courts">
	<a href="/ventes-judiciaires-immobilieres/tj-aix/resultats.html">TJ Aix</a>
	<a href="/ventes-judiciaires-immobilieres/tj-bordeaux/resultats.html">TJ Bordeaux</a>
	<a href="/ventes-judiciaires-immobilieres/tj-caen/resultats.html">TJ Caen</a>
</div></body></html>`

const historyResultsHTML = `<html><body>
	<ul class="AdResults">
		<li>
			<a class="Ad" href="/annonce/maison/%d.html">
				<p class="Location">
					<span class="Number">13</span>
					<span class="City">Marseille</span>
				</p>
				<p class="Description"><span class="Name">Maison</span></p>
				<p class="Result">05-02-2026 : <span class="PriceNumber">58 000 €</span></p>
			</a>
		</li>
	</ul>
</body></html>`

func TestRunHistoryBackfillCancelsAfterSecondTribunal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/historique-des-adjudications.html", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(historyIndexHTML))
	})

	var dataPath string
	mux.HandleFunc("/ventes-judiciaires-immobilieres/tj-aix/resultats.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, historyResultsHTML, 201)
	})
	mux.HandleFunc("/ventes-judiciaires-immobilieres/tj-bordeaux/resultats.html", func(w http.ResponseWriter, r *http.Request) {
		// The operator cancels while the second tribunal is being walked;
		// slugs are processed in sorted order, so tj-caen must never load.
		require.NoError(t, writeCancelFlag(dataPath))
		fmt.Fprintf(w, historyResultsHTML, 202)
	})
	caenCalls := 0
	mux.HandleFunc("/ventes-judiciaires-immobilieres/tj-caen/resultats.html", func(w http.ResponseWriter, r *http.Request) {
		caenCalls++
		fmt.Fprintf(w, historyResultsHTML, 203)
	})

	orch, st, dp := newTestOrchestrator(t, mux)
	dataPath = dp

	err := orch.RunHistoryBackfill(context.Background(), nil, 0)
	require.True(t, errors.Is(err, scrapeerr.ErrCancelled))
	require.Equal(t, 0, caenCalls)

	snap, err := progress.Read(dataPath)
	require.NoError(t, err)
	require.Equal(t, progress.StatusCancelled, snap.Status)
	require.Equal(t, 2, snap.Processed, "the two tribunals walked before the flag was observed")

	require.False(t, progress.IsCancelRequested(dataPath), "the cancel flag is cleared once the run settles")

	var notes string
	require.NoError(t, st.DB().Raw("SELECT notes FROM scrape_log ORDER BY id DESC LIMIT 1").Scan(&notes).Error)
	require.Equal(t, "cancelled by operator", notes)
}
