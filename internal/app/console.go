package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/motion_console/internal/config"
	"github.com/relabs-tech/motion_console/internal/orientation"
	"github.com/relabs-tech/motion_console/internal/session"
)

// RunConsole connects to the device over the configured transport and
// prints live readouts until interrupted.
func RunConsole() error {
	cfg := config.Get()
	model := orientation.NewModel(cfg.SmoothingMS)

	s := session.New(model, session.Listeners{
		Connected: func(name string) {
			log.Printf("console: connected via %s", name)
		},
		Disconnected: func(err error) {
			if err != nil {
				log.Printf("console: disconnected: %v", err)
			} else {
				log.Println("console: disconnected")
			}
		},
		Sample: func(e session.Emission) {
			p := model.Pose()
			fmt.Printf(
				"[DATA]  a=(%6.2f %6.2f %6.2f)g  g=(%7.1f %7.1f %7.1f)°/s  m=(%6.1f %6.1f %6.1f)µT  t=%5.1f°C\n",
				e.Sample.Accel.X, e.Sample.Accel.Y, e.Sample.Accel.Z,
				e.Sample.Gyro.X, e.Sample.Gyro.Y, e.Sample.Gyro.Z,
				e.Sample.Mag.X, e.Sample.Mag.Y, e.Sample.Mag.Z,
				e.Sample.Temperature,
			)
			fmt.Printf(
				"[POSE]  ROLL=%7.2f  PITCH=%7.2f  YAW=%7.2f  dt=%.3fs  rate=%d/s\n",
				p.Roll, p.Pitch, p.Yaw, e.DT, e.Rate,
			)
		},
		DeviceFault: func(msg string) {
			fmt.Printf("[FAULT] %s\n", msg)
		},
		TransportError: func(err error) {
			log.Printf("console: transport error: %v", err)
		},
	})
	s.Start()
	defer s.Stop()

	tr, err := newTransport(cfg)
	if err != nil {
		return err
	}
	if err := s.Connect(context.Background(), tr); err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	return nil
}
