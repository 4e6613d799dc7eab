package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ankit-chaubey/web-image-meta/core"
	"github.com/ankit-chaubey/web-image-meta/core/image"
	"github.com/ankit-chaubey/web-image-meta/core/jpg"
	"github.com/ankit-chaubey/web-image-meta/core/png"
	"github.com/ankit-chaubey/web-image-meta/core/validate"
)

const usage = `Usage: surgery [-config file] [-json] [-v] <command> [flags] <args>

Commands:
  view <file>                          show comment, orientation, EXIF, ICC and text chunks
  strip [-o out] [-dry-run] <file>     remove metadata that does not affect display
  comment [-set text] [-o out] <file>  read or replace the JPEG comment
  text [-add key=value]... [-o out] <file>
                                       read or append PNG tEXt chunks
  estimate comment <text>              bytes a JPEG comment adds
  estimate text <keyword> <text>       bytes a PNG tEXt chunk adds
`

type kvList []string

func (l *kvList) String() string     { return strings.Join(*l, ",") }
func (l *kvList) Set(s string) error { *l = append(*l, s); return nil }

func main() {
	configPath := flag.String("config", "", "config file (default ~/.config/web-image-meta/config.json)")
	jsonOut := flag.Bool("json", false, "JSON output")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fail(err)
	}
	level, _ := cfg.SlogLevel()
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	printer := core.NewPrinter(*jsonOut || cfg.JSON, *verbose)
	opts := image.Options{
		Validator:       validate.FromConfig(cfg, log),
		Logger:          log,
		MaxInflateBytes: cfg.MaxInflateBytes,
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "view":
		err = runView(args, opts, printer)
	case "strip":
		err = runStrip(args, opts, printer)
	case "comment":
		err = runComment(args, opts, printer)
	case "text":
		err = runText(args, opts, printer)
	case "estimate":
		err = runEstimate(args, printer)
	default:
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fail(err)
	}
}

func loadConfig(path string) (core.Config, error) {
	if path == "" {
		p, err := core.ConfigPath()
		if err != nil {
			return core.DefaultConfig(), nil
		}
		path = p
	}
	return core.LoadConfig(path)
}

func fail(err error) {
	core.PrintError(err.Error())
	if core.KindOf(err) == core.IOError {
		os.Exit(3)
	}
	os.Exit(2)
}

func oneFile(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%s: expected exactly one file", fs.Name())
	}
	return fs.Arg(0), nil
}

func handlerFor(path string, want core.FormatID, opts image.Options) (*image.Handler, error) {
	id, err := core.DetectFormat(path)
	if err != nil {
		return nil, err
	}
	if want != "" && id != want {
		return nil, core.InvalidFormatf("%s is %s, expected %s", path, id, want)
	}
	return image.New(id, opts)
}

func runView(args []string, opts image.Options, p *core.Printer) error {
	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	path, err := oneFile(fs, args)
	if err != nil {
		return err
	}
	h, err := handlerFor(path, "", opts)
	if err != nil {
		return err
	}
	m, err := h.View(path)
	if err != nil {
		return err
	}
	p.PrintMetadata(m)
	return nil
}

func runStrip(args []string, opts image.Options, p *core.Printer) error {
	fs := flag.NewFlagSet("strip", flag.ContinueOnError)
	out := fs.String("o", "", "output file (default: in place)")
	dry := fs.Bool("dry-run", false, "report without writing")
	path, err := oneFile(fs, args)
	if err != nil {
		return err
	}
	h, err := handlerFor(path, "", opts)
	if err != nil {
		return err
	}
	r, err := h.Strip(path, *out, core.StripOptions{DryRun: *dry})
	if err != nil {
		return err
	}
	p.PrintReport(r)
	return nil
}

func runComment(args []string, opts image.Options, p *core.Printer) error {
	fs := flag.NewFlagSet("comment", flag.ContinueOnError)
	set := fs.String("set", "", "replace the comment with this text")
	out := fs.String("o", "", "output file (default: in place)")
	dry := fs.Bool("dry-run", false, "report without writing")
	path, err := oneFile(fs, args)
	if err != nil {
		return err
	}
	h, err := handlerFor(path, core.FmtJPEG, opts)
	if err != nil {
		return err
	}

	setGiven := false
	fs.Visit(func(f *flag.Flag) { setGiven = setGiven || f.Name == "set" })
	if !setGiven {
		m, err := h.View(path)
		if err != nil {
			return err
		}
		comment, ok := m.Get("Comment")
		if !ok {
			p.PrintInfo("(no comment)")
			return nil
		}
		p.PrintValue("comment", comment)
		return nil
	}
	r, err := h.Edit(path, *out, core.EditOptions{Set: map[string]string{"Comment": *set}, DryRun: *dry})
	if err != nil {
		return err
	}
	p.PrintReport(r)
	return nil
}

func runText(args []string, opts image.Options, p *core.Printer) error {
	fs := flag.NewFlagSet("text", flag.ContinueOnError)
	var adds kvList
	fs.Var(&adds, "add", "append a tEXt chunk (key=value, repeatable)")
	out := fs.String("o", "", "output file (default: in place)")
	dry := fs.Bool("dry-run", false, "report without writing")
	path, err := oneFile(fs, args)
	if err != nil {
		return err
	}
	h, err := handlerFor(path, core.FmtPNG, opts)
	if err != nil {
		return err
	}

	if len(adds) == 0 {
		m, err := h.View(path)
		if err != nil {
			return err
		}
		texts := &core.Metadata{FilePath: m.FilePath, Format: m.Format, Size: m.Size}
		for _, f := range m.Fields {
			if strings.HasPrefix(f.Category, "PNG ") {
				texts.Fields = append(texts.Fields, f)
			}
		}
		p.PrintMetadata(texts)
		return nil
	}

	set := make(map[string]string, len(adds))
	for _, kv := range adds {
		k, v, ok := core.ParseKV(kv)
		if !ok {
			return core.InvalidFormatf("-add %q: expected key=value", kv)
		}
		set[k] = v
	}
	r, err := h.Edit(path, *out, core.EditOptions{Set: set, DryRun: *dry})
	if err != nil {
		return err
	}
	p.PrintReport(r)
	return nil
}

func runEstimate(args []string, p *core.Printer) error {
	switch {
	case len(args) == 2 && args[0] == "comment":
		p.PrintValue("bytes", jpg.EstimateTextComment(args[1]))
	case len(args) == 3 && args[0] == "text":
		if err := png.ValidateKeyword(args[1]); err != nil {
			return err
		}
		p.PrintValue("bytes", png.EstimateTextChunk(args[1], args[2]))
	default:
		return fmt.Errorf("usage: estimate comment <text> | estimate text <keyword> <text>")
	}
	return nil
}
