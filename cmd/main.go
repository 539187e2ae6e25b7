package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/quadmap/featureflag"
	"github.com/aukilabs/quadmap/models"
	"github.com/aukilabs/quadmap/quadtree"
	"github.com/aukilabs/quadmap/render"
	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/encoding/json"
)

var (
	// The quadmap version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "quadmap_info",
		Help:        "Quadmap information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

const (
	actionCreate      = "create"
	actionPrint       = "print"
	actionSet         = "set"
	actionUndo        = "undo"
	actionRender      = "render"
	actionFingerprint = "fingerprint"
	actionImport      = "import"
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Map          string   `cli:""        env:"QUADMAP_MAP"           help:"The map document to work on."`
	Layer        int      `cli:""        env:"QUADMAP_LAYER"         help:"The id of the area layer to work on."`
	Action       string   `cli:""        env:"QUADMAP_ACTION"        help:"The action to perform (create|print|set|undo|render|fingerprint|import)."`
	Description  string   `cli:""        env:"QUADMAP_DESCRIPTION"   help:"The description of a created map or imported layer."`
	X            int      `cli:""        env:"-"                     help:"The x coordinate of the cell to set."`
	Y            int      `cli:""        env:"-"                     help:"The y coordinate of the cell to set."`
	Unit         int      `cli:""        env:"-"                     help:"The depth at which the cell coordinates resolve."`
	Value        string   `cli:""        env:"-"                     help:"The category to set, or unset."`
	Out          string   `cli:""        env:"QUADMAP_OUT"           help:"The PNG file where renders are written."`
	Size         int      `cli:""        env:"QUADMAP_SIZE"          help:"The side of rendered images. Derived from the tree depth when 0."`
	Scale        int      `cli:""        env:"QUADMAP_SCALE"         help:"The side of a deepest cell when the render size is derived."`
	AllLayers    bool     `cli:""        env:"-"                     help:"Render every layer of the map on top of each other."`
	Terminal     bool     `cli:""        env:"-"                     help:"Render to the terminal instead of a PNG file."`
	Image        string   `cli:""        env:"-"                     help:"The PNG file imported as a new layer."`
	LogLevel     string   `cli:""        env:"QUADMAP_LOG_LEVEL"     help:"Log level (debug|info|warning|error)."`
	LogIndent    bool     `cli:""        env:"QUADMAP_LOG_INDENT"    help:"Indent logs."`
	FeatureFlags []string `cli:",hidden" env:"QUADMAP_FEATURE_FLAGS" help:"Comma separated feature flags"`
	MetricsFile  string   `cli:",hidden" env:"QUADMAP_METRICS_FILE"  help:"The file where metrics are written in the Prometheus text format on exit."`
	Version      bool     `cli:""        env:"-"                     help:"Show version."`
	Help         bool     `cli:""        env:"-"                     help:"Show help."`
}

func main() {
	conf := config{
		Action:   actionPrint,
		Value:    "unset",
		Out:      "quadmap.png",
		Scale:    1,
		LogLevel: logs.InfoLevel.String(),
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Edits and renders quadtree area maps.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	flags := featureflag.New(conf.FeatureFlags)

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("action", conf.Action).
		WithTag("map", conf.Map).
		WithTag("feature_flags", flags.Enabled()).
		Debug("starting quadmap")

	for _, f := range flags.Unknown() {
		logs.WithTag("feature_flag", f).Warn("unknown feature flag")
	}

	store := models.MapStore{
		Flags: flags,
	}

	if conf.Action == actionRender && conf.Terminal {
		err := withScreen(func(screen tcell.Screen) error {
			return renderTerminal(ctx, conf, &store, screen)
		})
		if err != nil {
			logs.Fatal(err)
		}
	} else if err := run(ctx, conf, &store, os.Stdout); err != nil {
		logs.Fatal(err)
	}

	if conf.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(conf.MetricsFile, prometheus.DefaultGatherer); err != nil {
			logs.Warn(errors.New("writing metrics failed").
				WithTag("file", conf.MetricsFile).
				Wrap(err))
		}
	}
}

func run(ctx context.Context, conf config, store *models.MapStore, w io.Writer) error {
	if conf.Action == actionCreate {
		return createMap(ctx, conf, store)
	}

	m, err := store.Load(ctx, conf.Map)
	if err != nil {
		return err
	}

	if conf.Action == actionImport {
		return importLayer(ctx, conf, store, m)
	}
	if conf.Action == actionRender && conf.AllLayers {
		return renderPNG(ctx, conf, m, nil)
	}

	l, err := m.Layer(uint32(conf.Layer))
	if err != nil {
		return err
	}

	switch conf.Action {
	case actionPrint:
		_, err := fmt.Fprint(w, l.Tree())
		return err

	case actionFingerprint:
		_, err := fmt.Fprintln(w, l.Fingerprint())
		return err

	case actionSet:
		v, err := parseValue(conf.Value)
		if err != nil {
			return err
		}

		d, err := l.Set(uint32(conf.X), uint32(conf.Y), conf.Unit, v, time.Now())
		if err != nil {
			return err
		}

		logs.WithTag("map_id", m.ID).
			WithTag("layer_id", l.ID).
			WithTag("delta_id", d.ID).
			WithTag("value", v).
			Info("cell set")
		return store.Save(ctx, m.ID)

	case actionUndo:
		d, err := l.Undo()
		if err != nil {
			return err
		}

		logs.WithTag("map_id", m.ID).
			WithTag("layer_id", l.ID).
			WithTag("delta_id", d.ID).
			Info("delta undone")
		return store.Save(ctx, m.ID)

	case actionRender:
		return renderPNG(ctx, conf, m, l)

	default:
		return errors.New("unknown action").
			WithTag("action", conf.Action)
	}
}

func createMap(ctx context.Context, conf config, store *models.MapStore) error {
	if _, err := os.Stat(conf.Map); err == nil {
		return errors.New("map document already exists").
			WithType(models.ErrTypeMapExists).
			WithTag("path", conf.Map)
	}

	m, err := store.Create(ctx, conf.Description, conf.Map)
	if err != nil {
		return err
	}
	return store.Save(ctx, m.ID)
}

// importLayer adds the image as a new layer whose dark pixels are category 1
// and light ones category 0.
func importLayer(ctx context.Context, conf config, store *models.MapStore, m *models.Map) error {
	f, err := os.Open(conf.Image)
	if err != nil {
		return errors.New("opening image failed").
			WithTag("image", conf.Image).
			Wrap(err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return errors.New("decoding image failed").
			WithTag("image", conf.Image).
			Wrap(err)
	}

	tree, err := render.TreeFromImage(img, render.DarkClassifier)
	if err != nil {
		return err
	}

	l := models.NewAreaLayer(m.NewLayerID(), conf.Description, tree)
	for _, d := range []models.AreaData{
		{ID: 0, Description: "light", Color: colorful.Color{R: 1, G: 1, B: 1}},
		{ID: 1, Description: "dark", Color: colorful.Color{}},
	} {
		if err := l.AddData(d); err != nil {
			return err
		}
	}

	if err := m.AddLayer(l); err != nil {
		return err
	}

	logs.WithTag("map_id", m.ID).
		WithTag("layer_id", l.ID).
		WithTag("image", conf.Image).
		WithTag("nodes", tree.Len()).
		Info("image imported")
	return store.Save(ctx, m.ID)
}

// renderPNG writes the image of l, or of every layer of m when l is nil, to
// the output file.
func renderPNG(ctx context.Context, conf config, m *models.Map, l *models.AreaLayer) error {
	cache := render.Cache{
		Flags: featureflag.New(conf.FeatureFlags),
	}

	size := conf.Size
	if size == 0 {
		depth := 0
		layers := m.Layers()
		if l != nil {
			layers = []*models.AreaLayer{l}
		}
		for _, layer := range layers {
			layer.View(func(t *quadtree.Tree) {
				depth = max(depth, t.Depth(t.Root()))
			})
		}
		size = render.ImageSize(depth, conf.Scale)
	}

	var img *image.RGBA
	var err error
	if l == nil {
		img, err = render.Layers(ctx, &cache, m, size, size)
	} else {
		img, err = cache.Render(l, size, size)
	}
	if err != nil {
		return err
	}

	f, err := os.Create(conf.Out)
	if err != nil {
		return errors.New("creating output file failed").
			WithTag("out", conf.Out).
			Wrap(err)
	}
	defer f.Close()

	if err := render.WritePNG(f, img); err != nil {
		return err
	}

	logs.WithTag("map_id", m.ID).
		WithTag("out", conf.Out).
		WithTag("size", size).
		Info("map rendered")
	return f.Close()
}

func withScreen(fn func(screen tcell.Screen) error) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return errors.New("creating screen failed").Wrap(err)
	}
	if err := screen.Init(); err != nil {
		return errors.New("initializing screen failed").Wrap(err)
	}
	defer screen.Fini()

	return fn(screen)
}

// renderTerminal draws the layer onto the screen, one cell per pixel, and
// waits for a key press.
func renderTerminal(ctx context.Context, conf config, store *models.MapStore, screen tcell.Screen) error {
	m, err := store.Load(ctx, conf.Map)
	if err != nil {
		return err
	}

	l, err := m.Layer(uint32(conf.Layer))
	if err != nil {
		return err
	}

	drawLayer(screen, l)

	for {
		switch ev := screen.PollEvent().(type) {
		case nil, *tcell.EventKey:
			return nil

		case *tcell.EventResize:
			screen.Sync()
			drawLayer(screen, l)

		default:
			logs.WithTag("event", fmt.Sprintf("%T", ev)).Debug("ignored terminal event")
		}
	}
}

func drawLayer(screen tcell.Screen, l *models.AreaLayer) {
	screen.Clear()

	width, height := screen.Size()
	size := min(width, height)
	s := render.TerminalSurface{Screen: screen}
	palette := l.Palette()

	l.View(func(t *quadtree.Tree) {
		quadtree.Render(t, t.Root(), s, 0, 0, size, size, palette)
	})
	screen.Show()
}

// parseValue parses a category, or "unset".
func parseValue(s string) (quadtree.Value, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "unset") || strings.EqualFold(s, "none") {
		return quadtree.Unset, nil
	}

	c, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return quadtree.Unset, errors.New("invalid value").
			WithTag("value", s).
			Wrap(err)
	}
	return quadtree.ValueOf(quadtree.Category(c)), nil
}

func validateConfig(conf config) error {
	if conf.Map == "" {
		return errors.New("map document is not specified")
	}

	if conf.Layer < 0 || int64(conf.Layer) > math.MaxUint32 {
		return errors.New("invalid layer id").
			WithTag("layer", conf.Layer)
	}

	switch conf.Action {
	case actionCreate, actionPrint, actionUndo, actionFingerprint:

	case actionSet:
		if _, err := parseValue(conf.Value); err != nil {
			return err
		}
		if conf.Unit < 0 || conf.Unit > quadtree.MaxDepth {
			return errors.New("invalid unit").
				WithTag("unit", conf.Unit).
				WithTag("max_depth", quadtree.MaxDepth)
		}
		if conf.X < 0 || conf.Y < 0 || conf.X>>conf.Unit != 0 || conf.Y>>conf.Unit != 0 {
			return errors.New("cell is outside of the world").
				WithTag("x", conf.X).
				WithTag("y", conf.Y).
				WithTag("unit", conf.Unit)
		}

	case actionRender:
		if conf.Size < 0 || conf.Size > render.MaxImageSide {
			return errors.New("invalid render size").
				WithTag("size", conf.Size).
				WithTag("max", render.MaxImageSide)
		}
		if conf.Terminal && conf.AllLayers {
			return errors.New("terminal renders show a single layer")
		}

	case actionImport:
		if conf.Image == "" {
			return errors.New("image to import is not specified")
		}

	default:
		return errors.New("unknown action").
			WithTag("action", conf.Action)
	}

	return nil
}
