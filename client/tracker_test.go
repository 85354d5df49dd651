package client

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"malawiexplorer/analytics/models"

	json "github.com/goccy/go-json"
)

func TestTrackerDropsWhileInFlight(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	received := make(chan models.TrackRequest, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		var req models.TrackRequest
		_ = json.Unmarshal(body, &req)
		received <- req
		<-release
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	identity := NewIdentityManager(&MemoryStorage{})
	tr := NewTracker(NewClient(srv.URL), identity)

	tr.TrackPageView("/", "Home")
	first := <-received
	tr.TrackPageView("/history", "History")
	tr.TrackPageView("/culture", "Culture")

	close(release)
	tr.Wait()

	if got := hits.Load(); got != 1 {
		t.Fatalf("server hits = %d, want 1", got)
	}
	if first.PagePath != "/" || first.SessionID != identity.GetOrCreateSessionID() {
		t.Errorf("sent %+v", first)
	}

	// Once the send completes the tracker accepts new calls.
	tr.TrackPageView("/history", "History")
	second := <-received
	tr.Wait()
	if second.PagePath != "/history" {
		t.Errorf("second path = %q, want /history", second.PagePath)
	}
}

func TestTrackerSwallowsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := NewTracker(NewClient(srv.URL), NewIdentityManager(nil))
	tr.TrackPageView("/", "Home")
	tr.Wait()

	// A failed send must release the in-flight slot.
	if tr.inFlight.Load() {
		t.Error("tracker still marked in flight after failure")
	}
}
