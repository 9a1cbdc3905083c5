package rest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/abstract-ml/knave/pkg/dataset"
	"github.com/abstract-ml/knave/pkg/distance"
	"github.com/abstract-ml/knave/pkg/observability"
	"github.com/abstract-ml/knave/pkg/perturbation"
	"github.com/abstract-ml/knave/pkg/verify"
)

// RunRequest is the body of POST /v1/runs: a verification request
// against either dataset file paths or points supplied inline.
type RunRequest struct {
	DatasetFormat string `json:"dataset_format"`
	TrainingPath  string `json:"training_path,omitempty"`
	TestPath      string `json:"test_path,omitempty"`

	TrainPoints [][]float64 `json:"train_points,omitempty"`
	TrainLabels []int       `json:"train_labels,omitempty"`
	TestPoints  [][]float64 `json:"test_points,omitempty"`
	TestLabels  []int       `json:"test_labels,omitempty"`

	PerturbationKind string    `json:"perturbation_kind"`
	Epsilon          float64   `json:"epsilon"`
	Epsilons         []float64 `json:"epsilons,omitempty"`
	CatOn            []int     `json:"cat_on,omitempty"`
	NoiseKind        string    `json:"noise_kind,omitempty"`

	K              []int  `json:"k"`
	DistanceMetric string `json:"distance_metric"`
	SkipTies       bool   `json:"skip_ties"`
	UseRaf         bool   `json:"use_raf"`
}

// RunResponse is returned by POST /v1/runs.
type RunResponse struct {
	RunID string `json:"run_id"`
}

// RunRecord is a completed run, kept in memory so GET /v1/runs/{id}
// can retrieve it. The system targets CLI-sized workloads (spec
// §4.O), so POST /v1/runs runs synchronously and this store never
// needs persistence or eviction beyond process lifetime.
type RunRecord struct {
	ID        string                     `json:"id"`
	Summaries map[int]*verify.Summary    `json:"summaries"`
	Details   map[int][]verify.DetailRow `json:"details"`
	Elapsed   time.Duration              `json:"elapsed_ns"`
}

// Handler serves the verification REST API by invoking the driver
// in-process — no backend client, unlike the teacher's gRPC proxy.
type Handler struct {
	metrics *observability.Metrics
	logger  *observability.Logger

	mu   sync.RWMutex
	runs map[string]*RunRecord
}

// NewHandler creates a new REST API handler.
func NewHandler(metrics *observability.Metrics, logger *observability.Logger) *Handler {
	return &Handler{
		metrics: metrics,
		logger:  logger,
		runs:    make(map[string]*RunRecord),
	}
}

// HealthCheck handles GET /v1/health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// SubmitRun handles POST /v1/runs.
func (h *Handler) SubmitRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	train, err := loadOrBuildTrain(req)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	metric, ok := distance.ParseMetric(req.DistanceMetric)
	if !ok {
		writeError(w, fmt.Sprintf("unknown distance metric %q", req.DistanceMetric), http.StatusBadRequest)
		return
	}
	kind, ok := perturbation.ParseKind(req.PerturbationKind)
	if !ok {
		writeError(w, fmt.Sprintf("unknown perturbation kind %q", req.PerturbationKind), http.StatusBadRequest)
		return
	}
	var noiseKind perturbation.Kind
	if req.NoiseKind != "" {
		noiseKind, ok = perturbation.ParseKind(req.NoiseKind)
		if !ok {
			writeError(w, fmt.Sprintf("unknown noise kind %q", req.NoiseKind), http.StatusBadRequest)
			return
		}
	}

	testPoints, testLabels := req.TestPoints, req.TestLabels
	if req.TestPath != "" {
		loader, err := dataset.LoaderFactory(req.DatasetFormat)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		testSet, err := loader.Load(req.TestPath)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		testPoints, testLabels = testSet.Points, testSet.Labels
	}

	verifyReq := verify.Request{
		Train:      train,
		TestPoints: testPoints,
		TestLabels: testLabels,
		PerturbationSp: perturbation.Spec{
			Kind:      kind,
			Epsilon:   req.Epsilon,
			Epsilons:  req.Epsilons,
			CatOn:     req.CatOn,
			NoiseKind: noiseKind,
		},
		Ks:       req.K,
		Metric:   metric,
		SkipTies: req.SkipTies,
		UseRaf:   req.UseRaf,
		Metrics:  h.metrics,
		Logger:   h.logger,
	}

	start := time.Now()
	result, err := verify.RunConcurrent(verifyReq)
	elapsed := time.Since(start)
	if err != nil {
		h.metrics.RecordError("POST /v1/runs", "driver_error")
		writeError(w, fmt.Sprintf("verification failed: %v", err), http.StatusInternalServerError)
		return
	}

	id, err := newRunID()
	if err != nil {
		writeError(w, "failed to allocate run id", http.StatusInternalServerError)
		return
	}

	record := &RunRecord{ID: id, Summaries: result.Summaries, Details: result.Details, Elapsed: elapsed}
	h.mu.Lock()
	h.runs[id] = record
	h.mu.Unlock()

	for k, s := range result.Summaries {
		h.metrics.UpdateSummaryGauges(fmt.Sprintf("%d", k), s.Stable, s.Robust)
	}
	h.metrics.RecordRequest("POST /v1/runs", "success", elapsed)

	writeJSON(w, RunResponse{RunID: id}, http.StatusCreated)
}

// GetRun handles GET /v1/runs/{id}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if id == "" {
		writeError(w, "missing run id", http.StatusBadRequest)
		return
	}

	h.mu.RLock()
	record, ok := h.runs[id]
	h.mu.RUnlock()
	if !ok {
		writeError(w, "run not found", http.StatusNotFound)
		return
	}

	writeJSON(w, record, http.StatusOK)
}

func loadOrBuildTrain(req RunRequest) (*dataset.Dataset, error) {
	if req.TrainingPath != "" {
		loader, err := dataset.LoaderFactory(req.DatasetFormat)
		if err != nil {
			return nil, err
		}
		return loader.Load(req.TrainingPath)
	}
	if len(req.TrainPoints) == 0 {
		return nil, fmt.Errorf("request must supply either training_path or train_points")
	}
	return dataset.New(req.TrainPoints, req.TrainLabels), nil
}

func newRunID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode response: %v", err), http.StatusInternalServerError)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  message,
		"status": statusCode,
	})
}

// ServeDocs serves the OpenAPI/Swagger documentation.
func ServeDocs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	content, err := os.ReadFile("docs/api/openapi.yaml")
	if err != nil {
		writeError(w, "OpenAPI spec not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// ServeSwaggerUI serves the Swagger UI HTML page.
func ServeSwaggerUI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	html := `<!DOCTYPE html>
<html>
<head>
    <title>kNAVe Verification API Documentation</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({
                url: "/docs/openapi.yaml",
                dom_id: '#swagger-ui',
                presets: [
                    SwaggerUIBundle.presets.apis,
                    SwaggerUIBundle.SwaggerUIStandalonePreset
                ],
                layout: "BaseLayout"
            });
        };
    </script>
</body>
</html>`

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

// ParseIntQuery parses an integer query parameter.
func ParseIntQuery(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
