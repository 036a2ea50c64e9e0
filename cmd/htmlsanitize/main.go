package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/njchilds90/htmlsanitizer/v2"
	"github.com/njchilds90/htmlsanitizer/v2/internal/config"
	"github.com/njchilds90/htmlsanitizer/v2/internal/logger"
)

var AppHelpTemplate = `{{.Name}} - {{.Usage}}

STDIN/STDOUT USAGE:
  cat untrusted.html | {{.Name}} [options] > clean.html
  {{.Name}} [options] untrusted.html > clean.html

WEBSERVICE USAGE:
  {{.Name}} --http :6060 &
  curl --data-binary "@untrusted.html" http://localhost:6060/sanitize > clean.html

OPTIONS:
  {{range .Flags}}{{.}}
  {{end}}
`

// maxRequestBytes bounds the body of a web service request.
const maxRequestBytes = 10 << 20

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "htmlsanitize"
	app.Usage = "strip untrusted HTML down to a safe whitelist"
	app.CustomAppHelpTemplate = AppHelpTemplate
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "policy",
			Usage: "policy file (.yaml, .yml or .toml) applied on top of the default policy",
		},
		&cli.StringFlag{
			Name:  "relative",
			Usage: "relative URL handling: deny, passthrough or rewrite",
		},
		&cli.StringFlag{
			Name:  "base",
			Usage: "absolute base URL relative URLs are resolved against (implies --relative rewrite)",
		},
		&cli.StringFlag{
			Name:  "link-rel",
			Usage: "rel value added to every link",
		},
		&cli.BoolFlag{
			Name:  "no-link-rel",
			Usage: "do not add rel to links",
		},
		&cli.BoolFlag{
			Name:  "keep-comments",
			Usage: "keep HTML comments",
		},
		&cli.StringFlag{
			Name:  "id-prefix",
			Usage: "prefix added to every id attribute",
		},
		&cli.StringSliceFlag{
			Name:  "style-property",
			Usage: "CSS property kept in style attributes; repeatable, enables style filtering",
		},
		&cli.BoolFlag{
			Name:  "text",
			Usage: "print the text content only, without any markup",
		},
		&cli.StringFlag{
			Name:  "http",
			Usage: "HTTP service mode (eg --http :6060), endpoint is /sanitize",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "log every element and attribute the sanitizer drops",
		},
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "log errors only",
		},
		&cli.BoolFlag{
			Name:  "json-log",
			Usage: "log as JSON lines",
		},
	}
	app.Action = run
	return app
}

func run(c *cli.Context) error {
	logger.Init(logger.Options{
		Debug:  c.Bool("debug"),
		Quiet:  c.Bool("quiet"),
		JSON:   c.Bool("json-log"),
		Output: c.App.ErrWriter,
	})

	p, err := policy(c)
	if err != nil {
		return cli.Exit(err, 2)
	}
	p.SetLogger(logger.Get())

	if addr := c.String("http"); addr != "" {
		logger.Info("listening", "addr", addr)
		return http.ListenAndServe(addr, handler(p))
	}

	in := c.App.Reader
	if name := c.Args().First(); name != "" {
		f, err := os.Open(name)
		if err != nil {
			return cli.Exit(err, 1)
		}
		defer f.Close()
		in = f
	}

	doc, err := p.SanitizeReader(in)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if c.Bool("text") {
		_, err = io.WriteString(c.App.Writer, htmlsanitizer.StripTags(doc.String()))
	} else {
		_, err = doc.WriteTo(c.App.Writer)
	}
	return err
}

// policy builds the policy from --policy and the flags that override it.
func policy(c *cli.Context) (*htmlsanitizer.Policy, error) {
	cfg := &config.Config{}
	if path := c.String("policy"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
		logger.Debug("loaded policy file", "path", path)
	}

	if c.IsSet("base") {
		cfg.URLBase = c.String("base")
		cfg.URLRelative = "rewrite"
	}
	if c.IsSet("relative") {
		cfg.URLRelative = c.String("relative")
	}
	if c.IsSet("link-rel") {
		rel := c.String("link-rel")
		cfg.LinkRel = &rel
	}
	if c.Bool("no-link-rel") {
		none := ""
		cfg.LinkRel = &none
	}
	if c.Bool("keep-comments") {
		keep := false
		cfg.StripComments = &keep
	}
	if c.IsSet("id-prefix") {
		prefix := c.String("id-prefix")
		cfg.IDPrefix = &prefix
	}
	if props := c.StringSlice("style-property"); len(props) > 0 {
		cfg.StyleProperties = append(cfg.StyleProperties, props...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg.Policy()
}

func handler(p *htmlsanitizer.Policy) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sanitize", func(w http.ResponseWriter, r *http.Request) {
		doc, err := p.SanitizeReader(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		if err != nil {
			logger.Warn("could not read request body", "error", err)
			http.Error(w, "Error reading request.", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := doc.WriteTo(w); err != nil {
			logger.Warn("could not write response", "error", err)
		}
	})
	return mux
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
