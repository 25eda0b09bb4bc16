package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a dedicated registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithRefreshInterval(time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options are applied", func() {
				So(m, ShouldNotBeNil)
				So(m.namespace, ShouldEqual, "test")
				So(m.subsystem, ShouldEqual, "unit")
				So(m.histogramBuckets, ShouldResemble, []float64{1, 10, 100})
				So(m.refreshInterval, ShouldEqual, time.Second)
			})

			Convey("Then counters are registered under the namespace", func() {
				m.submissions.Inc()
				n, err := testutil.GatherAndCount(registry, "test_unit_submissions_total")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When empty options are passed", func() {
			m := NewManager(WithNamespace(""), WithHistogramBuckets(nil), WithPrometheusRegistry(registry))
			So(m.namespace, ShouldEqual, "dons")
			So(m.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
		})
	})
}

func TestRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording delivery attempts", func() {
			before := testutil.ToFloat64(globalManager.deliveryAttempts.WithLabelValues("relay", "send_failed"))
			RecordDeliveryAttempt("relay", "send_failed")
			RecordDeliveryAttempt("relay", "send_failed")
			after := testutil.ToFloat64(globalManager.deliveryAttempts.WithLabelValues("relay", "send_failed"))

			Convey("Then the labelled counter grows", func() {
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When recording leg outcomes", func() {
			before := testutil.ToFloat64(globalManager.legOutcomes.WithLabelValues("coordinator", "skipped"))
			RecordLegOutcome("coordinator", "skipped")
			after := testutil.ToFloat64(globalManager.legOutcomes.WithLabelValues("coordinator", "skipped"))
			So(after-before, ShouldEqual, 1)
		})

		Convey("When updating the dispatch cache gauge", func() {
			UpdateDispatchCacheSize(42)
			So(testutil.ToFloat64(globalManager.dispatchCacheSize), ShouldEqual, 42)
		})

		Convey("When recording everything else", func() {
			So(func() {
				RecordSubmission()
				RecordSubmissionDuplicate()
				RecordSubmissionRejected()
				RecordScoringLatency(0.2)
				RecordPersistenceLatency("create", 1.5)
				IncStoredAssessments()
				RecordChainLatency(120)
				RecordResendOutcome("not_found")
				RecordHTTPRequest("/assessments", "POST", "201")
				RecordHTTPRequestDuration("/assessments", "POST", "201", 3)
				RecordErrorByComponent("api", "validation")
				RecordErrorByEndpoint("/assessments", "POST", "validation")
				CollectSystem()
			}, ShouldNotPanic)
		})
	})
}

func TestMilliseconds(t *testing.T) {
	Convey("Durations convert to fractional milliseconds", t, func() {
		So(Milliseconds(1500*time.Microsecond), ShouldEqual, 1.5)
		So(Milliseconds(2*time.Second), ShouldEqual, 2000)
	})
}

func TestStartSystemCollector(t *testing.T) {
	Convey("The collector stops with its context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		So(func() { StartSystemCollector(ctx) }, ShouldNotPanic)
		cancel()
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("The custom registry gathers the service metrics", t, func() {
		RecordSubmission()
		families, err := GetRegistry().Gather()
		So(err, ShouldBeNil)
		found := false
		for _, f := range families {
			if f.GetName() == "dons_assessment_submissions_total" {
				found = true
			}
		}
		So(found, ShouldBeTrue)
	})
}
