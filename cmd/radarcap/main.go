// Command radarcap connects to an XEP radar module, applies the
// standard register preset, and logs amplitude statistics for a
// handful of frames. It is a smoke-test harness for the link client,
// not a data collector.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/cmplx"
	"os"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/xeplink/internal/xep"
)

var (
	port       = flag.String("port", "/dev/ttyACM0", "serial port the radar enumerates as")
	baud       = flag.Int("baud", 115200, "baud rate (nominal for USB CDC modules)")
	frames     = flag.Int("frames", 10, "number of frames to fetch")
	ddc        = flag.Bool("ddc", false, "enable the digital down-converter (complex I/Q frames)")
	timeout    = flag.Duration("timeout", 5*time.Second, "per-response timeout")
	configPath = flag.String("config", "", "optional JSON config file overriding the connection flags")
)

type registerWrite struct {
	name  string
	value float64
}

// preset mirrors the vcom_test chip configuration for the X4 module.
func preset(downConvert bool) []registerWrite {
	ddcValue := 0.0
	if downConvert {
		ddcValue = 1
	}
	return []registerWrite{
		{xep.RegRxWait, 0},
		{xep.RegFrameStart, 2},
		{xep.RegFrameEnd, 4},
		{xep.RegDDCEnable, ddcValue},
		{xep.RegTxRegion, 3},
		{xep.RegTxPower, 3},
	}
}

func main() {
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := xep.Config{
		Port:     *port,
		BaudRate: *baud,
		Timeout:  *timeout,
	}
	if *configPath != "" {
		cfg, err = xep.LoadConfig(*configPath)
		if err != nil {
			logger.Fatal("failed to load config", zap.Error(err))
		}
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("radar capture failed", zap.Error(err))
	}
}

func run(cfg xep.Config, logger *zap.Logger) error {
	session, err := xep.Connect(cfg, xep.WithLogger(logger))
	if err != nil {
		return err
	}

	return session.Connection(xep.DefaultConnectString, func(s *xep.Session) error {
		for _, reg := range preset(*ddc) {
			if err := s.UpdateChip(reg.name, reg.value); err != nil {
				return fmt.Errorf("set register %s: %w", reg.name, err)
			}
		}
		logger.Info("radar configured",
			zap.Int("samples_per_frame", s.SamplesPerFrame()),
			zap.Bool("down_converter", s.DownConverterEnabled()))

		for i := 0; i < *frames; i++ {
			samples, err := s.GetFrameNormalized()
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}

			amps := amplitudes(samples)
			mean, stddev := stat.MeanStdDev(amps, nil)
			logger.Info("frame",
				zap.Int("frame", i),
				zap.Int("samples", samples.Len()),
				zap.Bool("complex", samples.Complex()),
				zap.Float64("mean_amplitude", mean),
				zap.Float64("stddev_amplitude", stddev))
		}
		return nil
	})
}

// amplitudes flattens a frame into absolute sample values for the
// summary statistics.
func amplitudes(s xep.Samples) []float64 {
	out := make([]float64, 0, s.Len())
	if s.Complex() {
		for _, v := range s.IQ {
			out = append(out, cmplx.Abs(complex128(v)))
		}
		return out
	}
	for _, v := range s.Real {
		out = append(out, math.Abs(float64(v)))
	}
	return out
}
