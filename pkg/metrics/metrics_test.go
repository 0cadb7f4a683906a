package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			registryOpt := WithRegistry(prometheus.NewRegistry())

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(registryOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestManagerCreation(t *testing.T) {
	Convey("Given a metrics manager", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "podium")
				So(manager.subsystem, ShouldEqual, "leaderboard")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("custom"),
				WithSubsystem("board"),
				WithHistogramBuckets([]float64{1, 5, 25, 125}),
				WithRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "custom")
				So(manager.subsystem, ShouldEqual, "board")
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 5, 25, 125})
			})
		})

		Convey("When options carry empty values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithRegistry(registry),
			)

			Convey("Then the defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "podium")
				So(manager.subsystem, ShouldEqual, "leaderboard")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestRecordingHelpers(t *testing.T) {
	Convey("Given the package-level recording helpers", t, func() {
		Convey("When recording submissions and rejections", func() {
			So(func() {
				RecordSubmission(true)
				RecordSubmission(false)
				RecordSignatureRejection()
				RecordValidationRejection()
				RecordReplayRejection()
			}, ShouldNotPanic)
		})

		Convey("When recording store activity", func() {
			So(func() {
				RecordStoreUpdateLatency("memory", 1.2)
				RecordStoreQueryLatency("sqlite", 4.5)
				RecordStoreError("redis", "upsert")
			}, ShouldNotPanic)
		})

		Convey("When recording HTTP traffic", func() {
			So(func() {
				RecordHTTPRequest("/scores", "POST", "200")
				RecordHTTPRequestDuration("/scores", "POST", "200", 3.1)
			}, ShouldNotPanic)
		})

		Convey("When recording operational metrics", func() {
			So(func() {
				UpdateGamesTracked(3)
				RecordSecretRefresh()
				RecordErrorByComponent("store", "operation_failed")
			}, ShouldNotPanic)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the global registry", t, func() {
		registry := GetRegistry()

		Convey("Then it should expose the registered metrics", func() {
			So(registry, ShouldNotBeNil)

			RecordSubmission(true)
			families, err := registry.Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)

			found := false
			for _, f := range families {
				if f.GetName() == "podium_leaderboard_submissions_total" {
					found = true
				}
			}
			So(found, ShouldBeTrue)
		})
	})
}
