package build

import (
	"fmt"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/dlgate/download-gate/analytics"
	"github.com/dlgate/download-gate/analytics/filesystem"
	httpanalytics "github.com/dlgate/download-gate/analytics/http"
	"github.com/dlgate/download-gate/config"
	"github.com/dlgate/download-gate/errortypes"
	"github.com/dlgate/download-gate/metrics"
	"github.com/golang/glog"
)

// New returns the modules enabled by cfg. Modules which fail to initialize are logged and skipped.
func New(cfg *config.Analytics, client *http.Client, clk clock.Clock) analytics.Module {
	modules := make(enabledAnalytics, 0)
	if len(cfg.File.Filename) > 0 {
		if mod, err := filesystem.NewFileLogger(cfg.File.Filename); err == nil {
			modules = append(modules, namedModule{"filelogger", mod})
		} else {
			glog.Errorf("Could not initialize FileLogger for file %v :%v", cfg.File.Filename, err)
		}
	}

	if cfg.HTTP.Enabled {
		if mod, err := httpanalytics.NewModule(client, cfg.HTTP, clk); err == nil {
			modules = append(modules, namedModule{"http", mod})
		} else {
			glog.Errorf("Could not initialize http analytics module: %v", err)
		}
	}
	return modules
}

// NewReporter wires the enabled modules behind a bounded asynchronous reporter.
func NewReporter(cfg *config.Analytics, client *http.Client, clk clock.Clock, me metrics.MetricsEngine) *analytics.AsyncReporter {
	return analytics.NewAsyncReporter(New(cfg, client, clk), cfg.BufferSize, me)
}

type namedModule struct {
	name string
	analytics.Module
}

// Collection of all the correctly configured analytics modules - implements the analytics.Module interface
type enabledAnalytics []namedModule

func (ea enabledAnalytics) LogEvent(e *analytics.Event) error {
	var errs []error
	for _, module := range ea {
		if err := module.LogEvent(e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", module.name, err))
		}
	}
	if len(errs) > 0 {
		return errortypes.NewAggregateErrors("analytics modules failed", errs)
	}
	return nil
}

func (ea enabledAnalytics) Shutdown() {
	for _, module := range ea {
		module.Shutdown()
	}
}
