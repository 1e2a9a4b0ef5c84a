package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gradepipe_pipeline_duration_seconds",
			Help:    "End-to-end grading pipeline duration in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 180, 300},
		},
		[]string{"outcome"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gradepipe_stage_duration_seconds",
			Help:    "Duration of an individual pipeline stage in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"stage"},
	)

	TranscriptionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gradepipe_transcription_duration_seconds",
			Help:    "Transcription stage duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120},
		},
		[]string{"outcome"},
	)

	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradepipe_submissions_total",
			Help: "Total number of submissions by terminal status",
		},
		[]string{"status"},
	)

	EventsAppendedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradepipe_events_appended_total",
			Help: "Total grading events appended to the event log",
		},
		[]string{"status"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradepipe_llm_tokens_used_total",
			Help: "Total LLM tokens used, by model and stage",
		},
		[]string{"model", "stage"},
	)

	LLMCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gradepipe_llm_call_duration_seconds",
			Help:    "LLM completion call duration in seconds",
			Buckets: []float64{0.2, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"stage"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gradepipe_circuit_breaker_state",
			Help: "Circuit breaker state: 0=closed, 1=half-open, 2=open",
		},
		[]string{"breaker"},
	)

	OverallScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gradepipe_overall_score",
			Help:    "Distribution of overall scores across graded submissions",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 7.5, 8, 9, 10},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradepipe_cache_hits_total",
			Help: "Total result cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradepipe_cache_misses_total",
			Help: "Total result cache misses",
		},
		[]string{"cache_type"},
	)

	ArtifactsStoredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gradepipe_artifacts_stored_total",
			Help: "Total canvas/audio artifacts written to the artifact store",
		},
	)

	WorkerPoolInUse = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gradepipe_worker_pool_in_use",
			Help: "Number of pipeline worker slots currently in use",
		},
	)
)

func Init() {
	prometheus.MustRegister(PipelineDuration)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(TranscriptionDuration)
	prometheus.MustRegister(SubmissionsTotal)
	prometheus.MustRegister(EventsAppendedTotal)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(LLMCallDuration)
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(OverallScoreHistogram)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(ArtifactsStoredTotal)
	prometheus.MustRegister(WorkerPoolInUse)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
