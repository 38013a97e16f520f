package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opentransittools/pelias-refine/internal/domain/agency"
	"github.com/opentransittools/pelias-refine/internal/domain/api"
	"github.com/opentransittools/pelias-refine/internal/domain/geocode"
	"github.com/opentransittools/pelias-refine/internal/domain/query"
	logpkg "github.com/opentransittools/pelias-refine/internal/logger"
	"github.com/opentransittools/pelias-refine/internal/transport/pelias"
	"github.com/opentransittools/pelias-refine/internal/usecase/cascade"
	"github.com/opentransittools/pelias-refine/internal/usecase/clean"
	refineuc "github.com/opentransittools/pelias-refine/internal/usecase/refine"
	"github.com/opentransittools/pelias-refine/internal/version"
)

var defaultAgencies = agency.Agencies{
	Primary:     "TRIMET",
	PrimaryName: "TriMet",
	List:        []string{"TRIMET", "CTRAN", "SAM", "SMART", "MULT", "WAPARK", "CTRAN_FLEX"},
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "refinectl",
		Short:         "Inspect how geocoder queries are classified and refined",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newClassifyCmd(), newQueryCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "refinectl "+version.String())
		},
	}
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>",
		Short: "Show the query type and the layers a refine request would use",
		Example: `  refinectl classify "stop 1234"
  refinectl classify "Main St & Oak Ave"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			qt, stopID := query.Classify(text)
			_, params := refineuc.AdjustLayers(qt, url.Values{query.ParamText: {text}}, defaultAgencies)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "type:    %s\n", qt)
			if stopID != query.NoID {
				fmt.Fprintf(out, "stop id: %d\n", stopID)
			}
			if layers := params.Get(query.ParamLayers); layers != "" {
				fmt.Fprintf(out, "layers:  %s\n", layers)
			}
			return nil
		},
	}
}

type queryOptions struct {
	peliasURL string
	prefix    string
	api       string
	refine    bool
	rtp       bool
	calltaker bool
	size      int
	params    []string
	timeout   time.Duration
	verbose   bool
}

func newQueryCmd() *cobra.Command {
	var o queryOptions
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Run a query through the cascade and print the JSON response",
		Example: `  refinectl query --refine "2 Main St"
  refinectl query --api reverse -p point.lat=45.52 -p point.lon=-122.68`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, o, strings.Join(args, " "))
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.peliasURL, "pelias", "http://localhost:4000", "upstream Pelias base URL")
	f.StringVar(&o.prefix, "prefix", pelias.DefaultPathPrefix, "upstream path prefix")
	f.StringVar(&o.api, "api", string(api.Autocomplete), "service: autocomplete, search, reverse, place")
	f.BoolVar(&o.refine, "refine", false, "classify and reorder results")
	f.BoolVar(&o.rtp, "rtp", false, "trip planner mode")
	f.BoolVar(&o.calltaker, "calltaker", false, "mark interpolated addresses")
	f.IntVar(&o.size, "size", 0, "number of results (0 uses the upstream default)")
	f.StringArrayVarP(&o.params, "param", "p", nil, "extra upstream parameter key=value (repeatable)")
	f.DurationVar(&o.timeout, "timeout", pelias.DefaultTimeout, "upstream timeout")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "log cascade decisions to stderr")
	return cmd
}

func runQuery(cmd *cobra.Command, o queryOptions, text string) error {
	kind, err := api.ParseKind(o.api)
	if err != nil {
		return err
	}

	params := url.Values{}
	if text != "" {
		params.Set(query.ParamText, text)
	}
	if o.size > 0 {
		params.Set(query.ParamSize, fmt.Sprint(o.size))
	}
	for _, kv := range o.params {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return fmt.Errorf("invalid --param %q, want key=value", kv)
		}
		params.Add(k, v)
	}

	log := zap.NewNop()
	if o.verbose {
		if log, err = logpkg.NewLogger("local", "debug"); err != nil {
			return err
		}
	}
	ctx := logpkg.ContextWithLogger(cmd.Context(), log)

	client := pelias.NewClient(&pelias.Config{
		BaseURL:    o.peliasURL,
		PathPrefix: o.prefix,
		Timeout:    o.timeout,
		UserAgent:  "refinectl/" + version.Version,
		Logger:     log,
	})
	svc := refineuc.New(
		cascade.New(client, agency.NewState(defaultAgencies), clean.New(defaultAgencies)),
		client.Routes(), defaultAgencies, 0,
	)

	carrier := query.NewRequestParams(params)
	opts := refineuc.Options{RTP: o.rtp, Calltaker: o.calltaker}
	var resp geocode.Response
	if o.refine && kind != api.Reverse && kind != api.Place {
		resp, err = svc.Refine(ctx, carrier, kind, opts)
	} else {
		resp, err = svc.Proxy(ctx, carrier, kind, opts)
	}
	if err != nil {
		return fmt.Errorf("query %s: %w", kind, err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
