// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/relabs-tech/motion_console/internal/config"
	"github.com/relabs-tech/motion_console/internal/devicesim"
)

func main() {
	log.Println("starting motion-console device simulator")

	if err := config.InitGlobal("motion_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	srv := devicesim.NewServer(
		devicesim.NewGenerator(),
		time.Duration(cfg.SimIntervalMS)*time.Millisecond,
		cfg.SimProtocol,
	)

	addr := fmt.Sprintf(":%d", cfg.SimPort)
	log.Printf("devicesim: serving %s frames on %s", cfg.SimProtocol, addr)
	if err := http.ListenAndServe(addr, srv); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
