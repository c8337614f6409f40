package telemetry_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/arenalabs/motionduel/internal/adapters/telemetry"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/arenalabs/motionduel/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestEntityID(t *testing.T) {
	Convey("EntityID zero-pads short wristband ids", t, func() {
		So(telemetry.EntityID("10"), ShouldEqual, "urn:ngsi-ld:Band:010")
		So(telemetry.EntityID("010"), ShouldEqual, "urn:ngsi-ld:Band:010")
		So(telemetry.EntityID("7"), ShouldEqual, "urn:ngsi-ld:Band:007")
	})
}

func TestScores(t *testing.T) {
	ctx := context.Background()

	Convey("Given a band API serving per-axis attributes", t, func() {
		values := map[string]float64{"scoreX": 1.5, "scoreY": 12.3, "scoreZ": -2.0}
		var gotService string

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotService = r.Header.Get("fiware-service")
			for attr, v := range values {
				if r.URL.Path == "/urn:ngsi-ld:Band:010/attrs/"+attr {
					fmt.Fprintf(w, `{"type":"Number","value":%g}`, v)
					return
				}
			}
			http.NotFound(w, r)
		}))
		defer srv.Close()

		Convey("Scores fans out and returns all three axes", func() {
			c := telemetry.NewClient(srv.URL)
			s, err := c.Scores(ctx, "010")
			So(err, ShouldBeNil)
			So(s.X, ShouldEqual, 1.5)
			So(s.Y, ShouldEqual, 12.3)
			So(s.Z, ShouldEqual, -2.0)
			So(gotService, ShouldEqual, "smart")
		})

		Convey("the multiplier scales every axis", func() {
			c := telemetry.NewClient(srv.URL, telemetry.WithMultiplier(2.0))
			s, err := c.Scores(ctx, "010")
			So(err, ShouldBeNil)
			So(s.X, ShouldEqual, 3.0)
			So(s.Y, ShouldEqual, 24.6)
		})

		Convey("custom service headers are sent", func() {
			c := telemetry.NewClient(srv.URL, telemetry.WithServiceHeaders("event", "/arena"))
			_, err := c.Scores(ctx, "010")
			So(err, ShouldBeNil)
			So(gotService, ShouldEqual, "event")
		})
	})

	Convey("Given a band API missing one axis", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/urn:ngsi-ld:Band:020/attrs/scoreY" {
				fmt.Fprint(w, `{"type":"Number","value":8.9}`)
				return
			}
			http.NotFound(w, r)
		}))
		defer srv.Close()

		Convey("missing axes read as zero without an error", func() {
			c := telemetry.NewClient(srv.URL)
			s, err := c.Scores(ctx, "020")
			So(err, ShouldBeNil)
			So(s.X, ShouldEqual, 0)
			So(s.Y, ShouldEqual, 8.9)
			So(s.Z, ShouldEqual, 0)
		})
	})

	Convey("Given an unreachable band API", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusBadGateway)
		}))
		defer srv.Close()

		Convey("a fully failed readout still yields a zero sample", func() {
			c := telemetry.NewClient(srv.URL)
			s, err := c.Scores(ctx, "030")
			So(err, ShouldNotBeNil)
			So(s.X, ShouldEqual, 0)
			So(s.Y, ShouldEqual, 0)
			So(s.Z, ShouldEqual, 0)
		})
	})
}
