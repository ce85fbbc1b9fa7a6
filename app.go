package main

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/nvd-feed-update/config"
	"github.com/aquasecurity/nvd-feed-update/nvd"
)

var (
	rangeFlags = []cli.Flag{
		cli.IntFlag{
			Name:  "start",
			Usage: "first year to process (default: 2002)",
		},
		cli.IntFlag{
			Name:  "end",
			Usage: "last year to process (default: current year)",
		},
		cli.IntFlag{
			Name:  "concurrency",
			Usage: "number of years processed in parallel",
		},
	}
	fetchFlags = []cli.Flag{
		cli.StringFlag{
			Name:  "client",
			Usage: "download client (gorequest, getter)",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Usage: "timeout per request",
		},
	}
)

func newApp(version string) *cli.App {
	app := cli.NewApp()
	app.Name = "nvd-feed-update"
	app.Version = version
	app.Usage = "NVD JSON feed downloader"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "YAML config file",
		},
		cli.StringFlag{
			Name:  "dir",
			Usage: "output directory (must exist)",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "debug mode",
		},
	}
	app.Before = func(c *cli.Context) error {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		if c.GlobalBool("debug") {
			log.SetLevel(log.DebugLevel)
		}
		return nil
	}

	app.Commands = []cli.Command{
		{
			Name:   "provision",
			Usage:  "create CVE-<year> directories for every supported year",
			Action: provision,
		},
		{
			Name:   "download",
			Usage:  "download and decompress the yearly feeds",
			Action: download,
			Flags:  append(append([]cli.Flag{}, rangeFlags...), fetchFlags...),
		},
		{
			Name:   "split",
			Usage:  "split the yearly feeds into one file per CVE",
			Action: split,
			Flags:  rangeFlags,
		},
		{
			Name:   "update",
			Usage:  "download and split the yearly feeds",
			Action: update,
			Flags:  append(append([]cli.Flag{}, rangeFlags...), fetchFlags...),
		},
		{
			Name:      "lookup",
			Usage:     "look up a single CVE with the REST API",
			ArgsUsage: "CVE-ID",
			Action:    lookup,
			Flags:     fetchFlags,
		},
	}

	return app
}

func loadConfig(c *cli.Context) (config.Config, error) {
	conf, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return config.Config{}, xerrors.Errorf("config error: %w", err)
	}

	if c.GlobalIsSet("dir") {
		conf.OutputDir = c.GlobalString("dir")
	}
	if c.IsSet("concurrency") {
		conf.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("client") {
		conf.Client = c.String("client")
	}
	if c.IsSet("timeout") {
		conf.Timeout = c.Duration("timeout")
	}
	return conf, nil
}

func newUpdater(c *cli.Context) (nvd.Updater, error) {
	conf, err := loadConfig(c)
	if err != nil {
		return nvd.Updater{}, err
	}
	return nvd.NewUpdater(conf, nvd.WithProgress(true))
}

func yearRange(c *cli.Context, u nvd.Updater) (nvd.YearRange, error) {
	return u.YearRange(c.Int("start"), c.Int("end"))
}

func provision(c *cli.Context) error {
	u, err := newUpdater(c)
	if err != nil {
		return err
	}
	return u.Provision()
}

func download(c *cli.Context) error {
	return runYears(c, func(ctx context.Context, u nvd.Updater, r nvd.YearRange) (nvd.Results, error) {
		return u.Download(ctx, r)
	})
}

func split(c *cli.Context) error {
	return runYears(c, func(ctx context.Context, u nvd.Updater, r nvd.YearRange) (nvd.Results, error) {
		return u.Split(ctx, r), nil
	})
}

func update(c *cli.Context) error {
	return runYears(c, func(ctx context.Context, u nvd.Updater, r nvd.YearRange) (nvd.Results, error) {
		return u.Update(ctx, r)
	})
}

func runYears(c *cli.Context, fn func(ctx context.Context, u nvd.Updater, r nvd.YearRange) (nvd.Results, error)) error {
	u, err := newUpdater(c)
	if err != nil {
		return err
	}
	r, err := yearRange(c, u)
	if err != nil {
		return err
	}

	results, err := fn(context.Background(), u, r)
	if err != nil {
		return err
	}
	for _, res := range results {
		if res.OK() {
			log.Infof("%s: %s done", nvd.YearDir(res.Year), res.Step)
		} else {
			log.Errorf("%s: %s failed", nvd.YearDir(res.Year), res.Step)
		}
	}
	if failed := results.Failed(); len(failed) > 0 {
		return xerrors.Errorf("%d of %d years failed: %w", len(failed), len(results), results.Err())
	}
	return nil
}

func lookup(c *cli.Context) error {
	if c.NArg() != 1 {
		return xerrors.New("exactly one CVE-ID must be specified")
	}

	conf, err := loadConfig(c)
	if err != nil {
		return err
	}
	lc, err := nvd.NewLookupClient(conf)
	if err != nil {
		return err
	}
	res, err := lc.Lookup(context.Background(), c.Args().First())
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(res, "", "    ")
	if err != nil {
		return xerrors.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(c.App.Writer, string(b))
	return err
}
