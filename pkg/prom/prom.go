package prom

import (
	"strings"
	"sync"

	xhttp "github.com/nimasrn/policy-desk/pkg/http"
	"github.com/nimasrn/policy-desk/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	SystemImport   = "import"
	SystemReminder = "reminder"
	SystemDispatch = "dispatch"
)

const (
	MetricImportRows         = "rows_total"
	MetricImportBatches      = "batches_total"
	MetricImportDuration     = "duration_seconds"
	MetricRemindersLogged    = "logged_total"
	MetricReminderRuns       = "runs_total"
	MetricDispatchResults    = "results_total"
	MetricDispatchDuration   = "duration_seconds"
	MetricDispatchQueueDepth = "queue_pending"
)

var lockCreateMetricLock = &sync.Mutex{}
var namespace = "none"

var MetricSystemEnabled = false

var MetricCollectionCounters = make(map[string]prometheus.Counter)
var MetricCollectionCounterVec = make(map[string]*prometheus.CounterVec)
var MetricCollectionGaugeVec = make(map[string]*prometheus.GaugeVec)
var MetricCollectionHistogram = make(map[string]prometheus.Histogram)
var MetricCollectionHistogramVec = make(map[string]*prometheus.HistogramVec)

var defaultLabels prometheus.Labels

func Create(host string, env string, nameSpace string) error {
	defaultLabels = make(prometheus.Labels)
	defaultLabels["env"] = env
	defaultLabels["instance"] = host
	namespace = nameSpace
	MetricSystemEnabled = true

	var err error
	hasError := func(e error) {
		if err == nil && e != nil {
			err = e
		}
	}

	hasError(createCounterVec(SystemImport, MetricImportRows, []string{"outcome"}))
	hasError(createCounterVec(SystemImport, MetricImportBatches, []string{"result"}))
	hasError(createHistogram(SystemImport, MetricImportDuration))

	hasError(createCounterVec(SystemReminder, MetricRemindersLogged, []string{"status"}))
	hasError(createCounter(SystemReminder, MetricReminderRuns))

	hasError(createCounterVec(SystemDispatch, MetricDispatchResults, []string{"status"}))
	hasError(createHistogramVec(SystemDispatch, MetricDispatchDuration, []string{"channel"}))
	hasError(createGaugeVec(SystemDispatch, MetricDispatchQueueDepth, []string{"queue"}))

	return err
}

func ListenAndServer(port string, url string) {
	hh := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	s := xhttp.CreateServer()
	s.GET(url, hh)
	logger.Info("[metrics-server] listening...", "url", url)
	if err := s.ListenAndServe(port); err != nil {
		logger.Error("[metrics-server] http listen error", "error", err)
	}
}

func createCounter(subsystem, name string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionCounters[subsystem+name] = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        strings.ReplaceAll(subsystem+" "+name, "_", " "),
		ConstLabels: defaultLabels,
	})
	return prometheus.Register(MetricCollectionCounters[subsystem+name])
}

func createCounterVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionCounterVec[subsystem+name] = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        strings.ReplaceAll(subsystem+" "+name, "_", " "),
		ConstLabels: defaultLabels,
	}, labels)
	return prometheus.Register(MetricCollectionCounterVec[subsystem+name])
}

func createHistogram(subsystem, name string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionHistogram[subsystem+name] = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        strings.ReplaceAll(subsystem+" "+name, "_", " "),
		ConstLabels: defaultLabels,
		Buckets:     prometheus.DefBuckets,
	})
	return prometheus.Register(MetricCollectionHistogram[subsystem+name])
}

func createHistogramVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionHistogramVec[subsystem+name] = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        strings.ReplaceAll(subsystem+" "+name, "_", " "),
		ConstLabels: defaultLabels,
	}, labels)
	return prometheus.Register(MetricCollectionHistogramVec[subsystem+name])
}

func createGaugeVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()

	MetricCollectionGaugeVec[subsystem+name] = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        strings.ReplaceAll(subsystem+" "+name, "_", " "),
		ConstLabels: defaultLabels,
	}, labels)
	return prometheus.Register(MetricCollectionGaugeVec[subsystem+name])
}

func IncCounter(subsystem, name string) {
	AddCounter(subsystem, name, 1)
}

func AddCounter(subsystem, name string, number float64) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionCounters[subsystem+name]; ok {
		v.Add(number)
		return
	}
	logger.Warn("[metrics-server] counter not found", "subsystem", subsystem, "name", name)
}

func SetGaugeVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionGaugeVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Set(num)
		return
	}
	logger.Warn("[metrics-server] gauge not found", "subsystem", subsystem, "name", name)
}

func AddCounterVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionCounterVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Add(num)
		return
	}
	logger.Warn("[metrics-server] counter vec not found", "subsystem", subsystem, "name", name)
}

func IncCounterVec(subsystem, name string, labelValues ...string) {
	AddCounterVec(subsystem, name, 1, labelValues...)
}

func AddHistogram(subsystem, name string, number float64) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionHistogram[subsystem+name]; ok {
		v.Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram not found", "subsystem", subsystem, "name", name)
}

func AddHistogramVec(subsystem, name string, number float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionHistogramVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram vec not found", "subsystem", subsystem, "name", name)
}

func AddImportRows(outcome string, n int) {
	if n == 0 {
		return
	}
	AddCounterVec(SystemImport, MetricImportRows, float64(n), outcome)
}

func IncImportBatch(result string) {
	IncCounterVec(SystemImport, MetricImportBatches, result)
}

func ObserveImportDuration(seconds float64) {
	AddHistogram(SystemImport, MetricImportDuration, seconds)
}

func IncReminderRun() {
	IncCounter(SystemReminder, MetricReminderRuns)
}

func IncReminderLogged(status string) {
	IncCounterVec(SystemReminder, MetricRemindersLogged, status)
}

func IncDispatchResult(status string) {
	IncCounterVec(SystemDispatch, MetricDispatchResults, status)
}

func ObserveDispatchDuration(seconds float64, channel string) {
	AddHistogramVec(SystemDispatch, MetricDispatchDuration, seconds, channel)
}

func SetQueuePending(queue string, pending int64) {
	SetGaugeVec(SystemDispatch, MetricDispatchQueueDepth, float64(pending), queue)
}
