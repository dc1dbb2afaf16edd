package pagewalk

import (
	"testing"

	"github.com/cboone/pagewalk/config"
	"github.com/cboone/pagewalk/driver"
	"github.com/cboone/pagewalk/driver/chromedpdriver"
	"github.com/cboone/pagewalk/driver/htmldriver"
	"github.com/cboone/pagewalk/driver/playwrightdriver"
	"github.com/cboone/pagewalk/internal/chromebin"
)

// Launch starts the driver selected by cfg.Browser and opens a Browser on it
// with cfg's defaults. Options after cfg override them.
//
// Browser drivers skip the test when no usable Chrome is found, unless
// browser.exec_path names one explicitly. A nil cfg means config.Default().
func Launch(t testing.TB, cfg *config.Config, userOpts ...Option) *Browser {
	t.Helper()

	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("pagewalk: launch: %v", err)
	}
	logger := config.NewLogger(cfg.Log, nil)

	var drv driver.Driver
	switch cfg.Browser.Driver {
	case config.DriverHTML:
		drv = htmldriver.New(htmldriver.WithLogger(logger))

	case config.DriverChromedp:
		path := chromebin.Require(t, cfg.Browser.ExecPath)
		opts := []chromedpdriver.Option{
			chromedpdriver.WithExecPath(path),
			chromedpdriver.WithLogger(logger),
		}
		if cfg.Browser.Headful {
			opts = append(opts, chromedpdriver.WithHeadful())
		}
		d, err := chromedpdriver.Launch(opts...)
		if err != nil {
			t.Fatalf("pagewalk: launch: %v", err)
		}
		drv = d

	case config.DriverPlaywright:
		opts := []playwrightdriver.Option{
			playwrightdriver.WithExecPath(cfg.Browser.ExecPath),
			playwrightdriver.WithLogger(logger),
		}
		if cfg.Browser.Headful {
			opts = append(opts, playwrightdriver.WithHeadful())
		}
		d, err := playwrightdriver.Launch(opts...)
		if err != nil {
			if cfg.Browser.ExecPath != "" {
				t.Fatalf("pagewalk: launch: %v", err)
			}
			t.Skipf("pagewalk: launch: %v", err)
		}
		drv = d
	}

	opts := append([]Option{WithConfig(cfg), WithLogger(logger)}, userOpts...)
	return Open(t, drv, opts...)
}
