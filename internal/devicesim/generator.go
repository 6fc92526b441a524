// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package devicesim

import (
	"math"
	"sync"
	"time"

	"github.com/relabs-tech/motion_console/internal/telemetry"
)

// Generator produces smoothly changing synthetic telemetry, standing
// in for real firmware during development.
type Generator struct {
	mu    sync.Mutex
	start time.Time
	epoch time.Time // gyro-integration reset point
	now   func() time.Time
}

// NewGenerator creates a generator whose device clock starts at zero.
func NewGenerator() *Generator {
	now := time.Now()
	return &Generator{start: now, epoch: now, now: time.Now}
}

// ResetGyro zeroes the simulated gyro integration, mirroring what the
// RESET_GYRO command does on real firmware.
func (g *Generator) ResetGyro() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.epoch = g.now()
}

// Packet returns the current synthetic telemetry packet.
func (g *Generator) Packet() telemetry.Packet {
	g.mu.Lock()
	defer g.mu.Unlock()

	t := g.now()
	elapsed := t.Sub(g.start).Seconds()
	integrated := t.Sub(g.epoch).Seconds()

	roll := 20 * math.Sin(elapsed)
	pitch := 15 * math.Cos(elapsed*0.7)
	yaw := math.Mod(elapsed*30, 360)

	return telemetry.Packet{
		Accel: telemetry.Vec3{
			X: math.Sin(pitch * math.Pi / 180),
			Y: -math.Sin(roll * math.Pi / 180),
			Z: math.Cos(roll*math.Pi/180) * math.Cos(pitch*math.Pi/180),
		},
		Gyro: telemetry.Vec3{
			X: 20 * math.Cos(elapsed),
			Y: -10.5 * math.Sin(elapsed*0.7),
			Z: 30,
		},
		Mag: telemetry.Vec3{
			X: 25 * math.Cos(yaw*math.Pi/180),
			Y: 25 * math.Sin(yaw*math.Pi/180),
			Z: -40,
		},
		GyroIntegrated: telemetry.Euler{
			Roll:  20 * math.Sin(integrated),
			Pitch: 15 * math.Cos(integrated*0.7),
			Yaw:   telemetry.NormalizeDegrees(integrated * 30),
		},
		Fusion:      telemetry.Euler{Roll: roll, Pitch: pitch, Yaw: telemetry.NormalizeDegrees(yaw)},
		FusionMag:   telemetry.Euler{Roll: roll, Pitch: pitch, Yaw: telemetry.NormalizeDegrees(yaw + 3)},
		Temperature: 24 + 2*math.Sin(elapsed/60),
		DeviceTime:  elapsed,
	}
}
