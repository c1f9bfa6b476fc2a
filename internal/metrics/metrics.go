package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teval_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "teval_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 状态迁移次数
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teval_lifecycle_transitions_total",
			Help: "Total number of evaluation lifecycle transitions",
		},
		[]string{"operation", "to"},
	)

	// 乐观锁冲突次数
	conflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teval_lifecycle_conflicts_total",
			Help: "Total number of optimistic lock conflicts",
		},
		[]string{"operation"},
	)

	// AI 评分结果
	aiScoringTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teval_ai_scoring_total",
			Help: "Total number of AI scoring tasks by outcome",
		},
		[]string{"outcome"}, // completed, failed, reused
	)

	// 检测出的异常数
	anomaliesDetectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "teval_anomalies_detected_total",
			Help: "Total number of count-mismatch anomalies detected",
		},
	)

	// 同步任务结果
	syncTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teval_sync_tasks_total",
			Help: "Total number of president-office sync tasks by outcome",
		},
		[]string{"outcome"}, // completed, failed, abandoned
	)

	// 远程调用重试次数
	remoteRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teval_remote_retries_total",
			Help: "Total number of retried remote calls",
		},
		[]string{"target"}, // ai, sync
	)

	// 后台任务池排队数
	workerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "teval_worker_jobs_inflight",
			Help: "Number of background jobs submitted but not finished",
		},
	)
)

var once sync.Once

func init() {
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(transitionsTotal)
	prometheus.MustRegister(conflictsTotal)
	prometheus.MustRegister(aiScoringTotal)
	prometheus.MustRegister(anomaliesDetectedTotal)
	prometheus.MustRegister(syncTasksTotal)
	prometheus.MustRegister(remoteRetriesTotal)
	prometheus.MustRegister(workerQueueDepth)

	once.Do(func() {
		// 默认注册表已含 Go / 进程指标时忽略重复注册
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, seconds float64) {
	apiRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// RecordTransition 记录一次状态迁移
func RecordTransition(operation, to string) {
	transitionsTotal.WithLabelValues(operation, to).Inc()
}

// RecordConflict 记录乐观锁冲突
func RecordConflict(operation string) {
	conflictsTotal.WithLabelValues(operation).Inc()
}

// RecordAIScoring 记录 AI 评分结果
func RecordAIScoring(outcome string) {
	aiScoringTotal.WithLabelValues(outcome).Inc()
}

// RecordAnomalies 累加检测出的异常数
func RecordAnomalies(n int) {
	anomaliesDetectedTotal.Add(float64(n))
}

// RecordSyncTask 记录同步任务结果
func RecordSyncTask(outcome string) {
	syncTasksTotal.WithLabelValues(outcome).Inc()
}

// RecordRetry 记录远程调用重试
func RecordRetry(target string) {
	remoteRetriesTotal.WithLabelValues(target).Inc()
}

// WorkerJobStarted / WorkerJobFinished 跟踪后台任务数
func WorkerJobStarted()  { workerQueueDepth.Inc() }
func WorkerJobFinished() { workerQueueDepth.Dec() }
