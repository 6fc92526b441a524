package app

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/motion_console/internal/config"
	"github.com/relabs-tech/motion_console/internal/orientation"
	"github.com/relabs-tech/motion_console/internal/session"
)

// bridgeEvent carries one emission from the session loop to the MQTT
// publisher goroutine so a slow broker never stalls telemetry intake.
type bridgeEvent struct {
	sample session.Emission
	pose   orientation.Pose
}

// RunBridge forwards device telemetry to MQTT: each coalesced sample
// goes to the sample topic, the resulting pose to the pose topic.
func RunBridge() error {
	log.Println("starting motion-console MQTT bridge")

	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDBridge)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("MQTT connect error: %v", token.Error())
		return token.Error()
	}
	defer client.Disconnect(250)

	log.Println("connected to MQTT, starting bridge loop")

	events := make(chan bridgeEvent, 64)
	pubDone := make(chan struct{})
	go func() {
		defer close(pubDone)
		for ev := range events {
			samplePayload, err := json.Marshal(ev.sample)
			if err != nil {
				log.Printf("bridge: sample marshal error: %v", err)
				continue
			}
			if token := client.Publish(cfg.TopicSample, 0, false, samplePayload); token.Wait() && token.Error() != nil {
				log.Printf("bridge: sample publish error: %v", token.Error())
			}

			posePayload, err := json.Marshal(ev.pose)
			if err != nil {
				log.Printf("bridge: pose marshal error: %v", err)
				continue
			}
			if token := client.Publish(cfg.TopicPose, 0, false, posePayload); token.Wait() && token.Error() != nil {
				log.Printf("bridge: pose publish error: %v", token.Error())
			}
		}
	}()

	model := orientation.NewModel(cfg.SmoothingMS)
	s := session.New(model, session.Listeners{
		Connected: func(name string) {
			log.Printf("bridge: connected over %s", name)
		},
		Disconnected: func(err error) {
			if err != nil {
				log.Printf("bridge: link lost: %v", err)
			} else {
				log.Println("bridge: disconnected")
			}
		},
		Sample: func(e session.Emission) {
			select {
			case events <- bridgeEvent{sample: e, pose: model.Pose()}:
			default:
				// Broker is behind; drop rather than back up the
				// telemetry loop.
			}
		},
		DeviceFault: func(msg string) {
			log.Printf("bridge: device fault: %s", msg)
		},
		TransportError: func(err error) {
			log.Printf("bridge: transport error: %v", err)
		},
	})
	s.Start()
	defer s.Stop()

	tr, err := newTransport(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	err = s.Connect(ctx, tr)
	cancel()
	if err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("bridge: shutting down")

	s.Disconnect()
	close(events)
	<-pubDone
	return nil
}
