package main

import (
	"flag"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config collects the runtime settings resolved from flags, PC_ prefixed
// environment variables, and an optional .env file
type Config struct {
	Source     string
	Weights    string
	ModelCfg   string
	Labels     string
	Confidence float64
	NMS        float64
	Size       int
	Skip       int
	Smooth     int
	Width      int
	Height     int
	FPS        int
	Backend    string
	Target     string
	Window     bool
	Display    string
	Track      bool
	Trail      bool
	Addr       string
	Pool       int
	DB         string
	Font       string
	LogLevel   string
}

// parseFlags reads the cli flags with environment variables supplying the
// defaults
func parseFlags() Config {

	var cfg Config

	flag.StringVar(&cfg.Source, "source", envString("PC_SOURCE", "0"),
		"Camera device index, video file, or stream URL")
	flag.StringVar(&cfg.Weights, "m", envString("PC_WEIGHTS", "models/yolov4-tiny.weights"),
		"YOLO model weights file")
	flag.StringVar(&cfg.ModelCfg, "c", envString("PC_CONFIG", "models/yolov4-tiny.cfg"),
		"YOLO network config file")
	flag.StringVar(&cfg.Labels, "l", envString("PC_LABELS", ""),
		"Text file containing model labels, blank uses the builtin COCO set")
	flag.Float64Var(&cfg.Confidence, "conf", envFloat("PC_CONFIDENCE", 0.4),
		"Confidence threshold for detections, valid range 0.1 to 0.9")
	flag.Float64Var(&cfg.NMS, "nms", envFloat("PC_NMS", 0.4),
		"Non-maximum suppression threshold")
	flag.IntVar(&cfg.Size, "size", envInt("PC_SIZE", 320),
		"Model input tensor size")
	flag.IntVar(&cfg.Skip, "skip", envInt("PC_SKIP", 3),
		"Run detection every Nth frame, valid range 1 to 10")
	flag.IntVar(&cfg.Smooth, "smooth", envInt("PC_SMOOTH", 5),
		"Median smoothing window for the person count")
	flag.IntVar(&cfg.Width, "width", envInt("PC_WIDTH", 640),
		"Camera capture width")
	flag.IntVar(&cfg.Height, "height", envInt("PC_HEIGHT", 480),
		"Camera capture height")
	flag.IntVar(&cfg.FPS, "fps", envInt("PC_FPS", 15),
		"Camera capture frame rate")
	flag.StringVar(&cfg.Backend, "backend", envString("PC_BACKEND", "opencv"),
		"DNN backend [opencv|cuda|openvino|vulkan]")
	flag.StringVar(&cfg.Target, "target", envString("PC_TARGET", "cpu"),
		"DNN target device [cpu|opencl|opencl16|cuda|cuda16|vulkan]")
	flag.BoolVar(&cfg.Window, "window", envBool("PC_WINDOW", true),
		"Show the annotated video in a desktop window")
	flag.StringVar(&cfg.Display, "display", envString("PC_DISPLAY", ""),
		"Letterbox the window output to a fixed WxH size, eg: 640x480")
	flag.BoolVar(&cfg.Track, "track", envBool("PC_TRACK", false),
		"Track persons across frames so each one is counted once")
	flag.BoolVar(&cfg.Trail, "trail", envBool("PC_TRAIL", false),
		"Draw movement trails for tracked persons, implies -track")
	flag.StringVar(&cfg.Addr, "addr", envString("PC_ADDR", ""),
		"HTTP address to serve the MJPEG stream on, blank disables the server")
	flag.IntVar(&cfg.Pool, "pool", envInt("PC_POOL", 1),
		"Number of detectors processing frames in parallel, stream mode only")
	flag.StringVar(&cfg.DB, "db", envString("PC_DB", ""),
		"SQLite database file for session persistence, blank disables")
	flag.StringVar(&cfg.Font, "font", envString("PC_FONT", ""),
		"TTF font file for the count overlay, blank uses the Hershey font")
	flag.StringVar(&cfg.LogLevel, "log-level", envString("PC_LOG_LEVEL", "info"),
		"Log level [debug|info|warn|error]")

	flag.Parse()

	return cfg
}

// envString returns the environment value for key, or fallback when unset
func envString(key, fallback string) string {

	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envInt(key string, fallback int) int {

	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}

	return fallback
}

func envFloat(key string, fallback float64) float64 {

	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}

	return fallback
}

func envBool(key string, fallback bool) bool {

	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}

	return fallback
}

// newLogger builds the application logger at the given level
func newLogger(level string) *logrus.Logger {

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)

	if err != nil {
		lvl = logrus.InfoLevel
	}

	log.SetLevel(lvl)

	return log
}

func main() {

	// load an optional .env file before flag defaults are resolved
	godotenv.Load()

	cfg := parseFlags()
	log := newLogger(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Fatal(err)
	}
}

// run builds the application and drives the capture loop, releasing all
// resources before returning
func run(cfg Config, log *logrus.Logger) error {

	app, err := newApp(cfg, log)

	if err != nil {
		return err
	}

	defer app.Close()

	return app.Run()
}
