package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go-admonitions/internal/admonition"
	"go-admonitions/internal/config"
	"go-admonitions/internal/render"
)

// resolveSettings starts from the config file's flags, or all types when
// path is empty, and turns off every type named in disable.
func resolveSettings(path, disable string) (admonition.Settings, error) {
	s := admonition.DefaultSettings()
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return s, err
		}
		s = cfg.Settings()
	}

	for _, name := range strings.Split(disable, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		t, err := admonition.ParseType(name)
		if err != nil {
			return s, err
		}
		s.Set(t, false)
	}
	return s, nil
}

// newRenderer builds a renderer for standalone output. Images keep their
// paths since there is no preview server to serve assets.
func newRenderer(settings admonition.Settings, styles bool) *render.Renderer {
	return render.NewRenderer(
		render.WithSettings(func() admonition.Settings { return settings }),
		render.WithStyles(styles),
		render.WithAssetRewrite(false),
	)
}

func main() {
	output := flag.String("o", "", "Write HTML to this file instead of stdout")
	disable := flag.String("disable", "", "Comma-separated admonition types to leave as text")
	cfgPath := flag.String("config", "", "Read enabled types from this config file")
	fragment := flag.Bool("fragment", false, "Emit the HTML fragment without the page shell")
	noStyles := flag.Bool("no-styles", false, "Do not embed the admonition stylesheet")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: admonish [options] <input-file>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}
	inputFile := args[0]

	settings, err := resolveSettings(*cfgPath, *disable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid settings: %v\n", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	r := newRenderer(settings, !*noStyles)

	var out string
	if *fragment {
		out, err = r.ConvertFragmentWithSourcePath(data, inputFile)
	} else {
		out, err = r.RenderPage(data, inputFile)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering file: %v\n", err)
		os.Exit(1)
	}

	if *output == "" {
		fmt.Print(out)
		return
	}
	if err := os.WriteFile(*output, []byte(out), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}
}
