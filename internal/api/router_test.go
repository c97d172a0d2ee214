package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Conceptual-Machines/magda-sequencer/internal/api/handlers"
	"github.com/Conceptual-Machines/magda-sequencer/internal/config"
	"github.com/Conceptual-Machines/magda-sequencer/internal/database"
	"github.com/Conceptual-Machines/magda-sequencer/internal/models"
)

type memoryStore struct {
	mu       sync.Mutex
	projects map[string]models.Arrangement
}

func newMemoryStore() *memoryStore {
	return &memoryStore{projects: map[string]models.Arrangement{}}
}

func (m *memoryStore) SaveArrangement(_ context.Context, arr *models.Arrangement) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := uuid.Parse(arr.ProjectID); err != nil {
		arr.ProjectID = uuid.New().String()
	}
	m.projects[arr.ProjectID] = *arr
	return arr.ProjectID, nil
}

func (m *memoryStore) LoadArrangement(_ context.Context, id string) (*models.Arrangement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	arr, ok := m.projects[id]
	if !ok {
		return nil, database.ErrProjectNotFound
	}
	return &arr, nil
}

func (m *memoryStore) DeleteArrangement(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return database.ErrProjectNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *memoryStore) ListProjects(_ context.Context) ([]database.ProjectSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []database.ProjectSummary{}
	for id, arr := range m.projects {
		out = append(out, database.ProjectSummary{ID: id, Name: arr.ProjectName, BPM: arr.BPM, Bars: arr.Bars, Seed: arr.Seed})
	}
	return out, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:     "test",
		AuthMode:        "none",
		DefaultBPM:      120,
		ChordOctave:     4,
		VoicingLowMIDI:  48,
		VoicingHighMIDI: 72,
	}
}

func testRouter(store handlers.ProjectStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return newRouter(nil, store, testConfig(), nil, "test")
}

func demoArrangement() *models.Arrangement {
	return &models.Arrangement{
		ProjectName:      "Router demo",
		BPM:              120,
		TimeSignatureNum: 4,
		TimeSignatureDen: 4,
		Bars:             2,
		KeyTonic:         "C",
		Mode:             "ionian",
		Seed:             1,
		Tracks: []models.Track{
			{
				ID:   "drums",
				Role: models.RoleDrums,
				Clips: []models.Clip{{
					ID: "d", StartBar: 0, LengthBars: 2,
					Notes: []models.Note{
						{ID: "k1", Pitch: 36, Velocity: 100, StartTick: 0, DurationTick: 240},
						{ID: "k2", Pitch: 36, Velocity: 100, StartTick: 1920, DurationTick: 240},
					},
				}},
			},
			{
				ID:   "keys",
				Role: models.RoleChords,
				Clips: []models.Clip{{
					ID: "c", StartBar: 0, LengthBars: 2,
					ChordEvents: []models.ChordEvent{
						{ID: "I", DurationTick: 1920, RomanNumeral: "I", Intensity: 1, IsEnabled: true},
						{ID: "bad", StartTick: 1920, DurationTick: 1920, ChordName: "Zz", IsEnabled: true},
					},
				}},
			},
		},
	}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := doJSON(t, testRouter(nil), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"disabled"`)
}

func TestMetrics(t *testing.T) {
	w := doJSON(t, testRouter(nil), http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.MetricsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, "healthy", resp.Status)
}

func TestMetricsCountPlanBuilds(t *testing.T) {
	r := testRouter(nil)

	w := doJSON(t, r, http.MethodPost, "/api/v1/playback/plan", gin.H{
		"arrangement": demoArrangement(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// empty range is an issue, not a failure
	w = doJSON(t, r, http.MethodPost, "/api/v1/playback/plan", gin.H{
		"arrangement": demoArrangement(),
		"range":       gin.H{"kind": "bars", "start_bar": 2, "end_bar": 2},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	broken := demoArrangement()
	broken.TimeSignatureDen = 0
	w = doJSON(t, r, http.MethodPost, "/api/v1/playback/plan", gin.H{
		"arrangement": broken,
		"strict":      true,
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.MetricsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.Counters.PlanBuilds)
	assert.Equal(t, int64(1), resp.Counters.FailedBuilds)
	assert.Equal(t, int64(5), resp.Counters.EventsEmitted)
	assert.Equal(t, map[string]int64{
		"unresolved_chord_symbol": 1,
		"invalid_range":           1,
		"invalid_tick":            1,
	}, resp.Counters.IssuesByKind)
	assert.Equal(t, 480, resp.Engine.PPQ)
}

func TestPlanEndpoint(t *testing.T) {
	w := doJSON(t, testRouter(nil), http.MethodPost, "/api/v1/playback/plan", gin.H{
		"arrangement": demoArrangement(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp handlers.PlanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Plan)
	assert.Equal(t, 0, resp.Plan.StartBar)
	assert.Equal(t, 2, resp.Plan.EndBar)
	// two kicks plus the C major triad; the unparseable chord is an issue
	assert.Len(t, resp.Plan.Events, 5)
	require.Len(t, resp.Issues, 1)
	assert.Contains(t, resp.Issues[0], "unresolved chord symbol")

	for i := 1; i < len(resp.Plan.Events); i++ {
		assert.LessOrEqual(t, resp.Plan.Events[i-1].StartTick, resp.Plan.Events[i].StartTick)
	}
}

func TestPlanEndpointBarRange(t *testing.T) {
	w := doJSON(t, testRouter(nil), http.MethodPost, "/api/v1/playback/plan", gin.H{
		"arrangement": demoArrangement(),
		"range":       gin.H{"kind": "bars", "start_bar": 1, "end_bar": 2},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.PlanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Plan.Events, 1)
	assert.Equal(t, "k2", resp.Plan.Events[0].SourceID)
}

func TestPlanEndpointErrors(t *testing.T) {
	r := testRouter(nil)

	w := doJSON(t, r, http.MethodPost, "/api/v1/playback/plan", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/playback/plan", gin.H{
		"arrangement": demoArrangement(),
		"range":       gin.H{"kind": "forever"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	broken := demoArrangement()
	broken.TimeSignatureDen = 0
	w = doJSON(t, r, http.MethodPost, "/api/v1/playback/plan", gin.H{
		"arrangement": broken,
		"strict":      true,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestExportEndpoint(t *testing.T) {
	w := doJSON(t, testRouter(nil), http.MethodPost, "/api/v1/playback/export", gin.H{
		"arrangement": demoArrangement(),
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/midi", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Router_demo.mid")

	sm, err := smf.ReadFrom(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	// conductor, drums, chords
	assert.Len(t, sm.Tracks, 3)
}

func TestChordRenderEndpoint(t *testing.T) {
	w := doJSON(t, testRouter(nil), http.MethodPost, "/api/v1/chords/render", gin.H{
		"chord": models.ChordEvent{ID: "x", DurationTick: 960, RomanNumeral: "IV", Intensity: 0.5, IsEnabled: true},
		"tonic": "C",
		"mode":  "ionian",
		"position": gin.H{
			"clip_start_bar": 1,
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.RenderChordResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Notes, 3)
	assert.Empty(t, resp.Issue)
	for _, n := range resp.Notes {
		assert.Equal(t, 1920, n.StartTick)
		assert.Equal(t, 50, n.Velocity)
	}
}

func TestVisualEndpoint(t *testing.T) {
	w := doJSON(t, testRouter(nil), http.MethodPost, "/api/v1/arrangement/visual", gin.H{
		"arrangement": demoArrangement(),
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Events []models.VisualEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	// two notes and two enabled chords
	assert.Len(t, resp.Events, 4)
}

func TestProjectRoutesNeedStore(t *testing.T) {
	w := doJSON(t, testRouter(nil), http.MethodGet, "/api/v1/projects", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProjectLifecycle(t *testing.T) {
	r := testRouter(newMemoryStore())

	w := doJSON(t, r, http.MethodPost, "/api/v1/projects", demoArrangement())
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	w = doJSON(t, r, http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.ID)

	w = doJSON(t, r, http.MethodGet, "/api/v1/projects/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Router demo")

	w = doJSON(t, r, http.MethodGet, "/api/v1/projects/"+created.ID+"/plan?start_bar=0&end_bar=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var plan handlers.PlanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))
	assert.Len(t, plan.Plan.Events, 4)

	w = doJSON(t, r, http.MethodGet, "/api/v1/projects/"+created.ID+"/plan?start_bar=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/projects/"+created.ID+"/export?bpm=90", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sm, err := smf.ReadFrom(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	require.NotEmpty(t, sm.TempoChanges())
	assert.InDelta(t, 90.0, sm.TempoChanges()[0].BPM, 0.01)

	w = doJSON(t, r, http.MethodDelete, "/api/v1/projects/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/projects/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/v1/projects/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGatewayModeRequiresUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.AuthMode = "gateway"
	r := newRouter(nil, nil, cfg, nil, "test")

	w := doJSON(t, r, http.MethodPost, "/api/v1/playback/plan", gin.H{"arrangement": demoArrangement()})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
