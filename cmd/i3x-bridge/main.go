// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"

	"github.com/samels-litmus/mqtt-to-i3x/internal/codec"
	"github.com/samels-litmus/mqtt-to-i3x/internal/config"
	"github.com/samels-litmus/mqtt-to-i3x/internal/httpapi"
	"github.com/samels-litmus/mqtt-to-i3x/internal/ingest"
	"github.com/samels-litmus/mqtt-to-i3x/internal/mapping"
	"github.com/samels-litmus/mqtt-to-i3x/internal/mqttbridge"
	"github.com/samels-litmus/mqtt-to-i3x/internal/store"
	"github.com/samels-litmus/mqtt-to-i3x/internal/subscription"
	"github.com/samels-litmus/mqtt-to-i3x/pkg/log"
	"github.com/samels-litmus/mqtt-to-i3x/pkg/runtimeEnv"
)

var (
	version = "development"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cliInit()

	if flagVersion {
		fmt.Printf("i3x-bridge, version %s (%s), built %s\n", version, commit, date)
		return
	}

	log.SetLogLevel(flagLogLevel)
	log.SetLogDateTime(flagLogDateTime)

	if err := loadEnvFile(flagEnvFile); err != nil {
		log.Fatalf("loading %s failed: %s", flagEnvFile, err.Error())
	}

	cfg, err := config.Load(flagConfigFile)
	if err != nil {
		log.Fatalf("loading config: %s", err.Error())
	}

	st := store.New()
	for _, ns := range cfg.Namespaces {
		st.RegisterNamespace(ns)
	}
	for _, ot := range cfg.ObjectTypes {
		st.RegisterType(ot)
	}

	engine := mapping.NewEngine[config.MappingRule]()
	for _, rule := range cfg.Mappings {
		if err := engine.Add(rule.Id, rule.TopicPattern, rule); err != nil {
			log.Fatalf("loading mapping rule %q: %s", rule.Id, err.Error())
		}
	}

	codecs := codec.NewRegistry()
	pipeline := ingest.New(engine, codecs, st)

	subs := subscription.NewManager()
	st.AddChangeListener(subs.NotifyChange)

	bridge := mqttbridge.NewClient(translateMqttConfig(cfg.Mqtt), pipeline.HandleMessage)
	bridge.OnStateChange(func(s mqttbridge.ConnState) {
		log.Infof("mqtt broker connection: %s", s.String())
	})

	connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = bridge.Connect(connectCtx)
	cancel()
	if err != nil {
		log.Fatalf("connecting to broker: %s", err.Error())
	}

	for _, rule := range cfg.Mappings {
		topic := mapping.BrokerSubscriptionTopic(rule.TopicPattern)
		if err := bridge.Subscribe(topic, 0); err != nil {
			log.Errorf("subscribing to %q (from mapping rule %q): %s", topic, rule.Id, err.Error())
		}
	}

	api := httpapi.New(st, subs, engine, bridge, cfg.Auth)

	scheduler := startHeartbeat(st, engine)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		runtimeEnv.SystemdNotifiy(false, "shutting down")
		serverShutdown()
		scheduler.Shutdown()
		bridge.Disconnect()
	}()

	runtimeEnv.SystemdNotifiy(true, "running")
	serverStart(cfg.Server, api)
	log.Info("Graceful shutdown completed!")
}

// loadEnvFile loads path into the process environment if it exists. A
// missing file is not an error. The legacy stdlib-only parser is kept
// alongside godotenv so deployments that cannot vendor it still work
// (-legacy-env-parser).
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if flagLegacyEnvParser {
		return runtimeEnv.LoadEnv(path)
	}
	return godotenv.Load(path)
}

// translateMqttConfig converts the config document's MqttConfig into
// mqttbridge's own Config type, keeping the transport shim free of any
// import on internal/config.
func translateMqttConfig(cfg config.MqttConfig) mqttbridge.Config {
	out := mqttbridge.Config{
		BrokerUrl:       cfg.BrokerUrl,
		ClientId:        "i3x-bridge",
		Username:        cfg.Username,
		Password:        cfg.Password,
		Keepalive:       time.Duration(cfg.Keepalive) * time.Second,
		ReconnectPeriod: time.Duration(cfg.ReconnectPeriod) * time.Second,
	}
	if cfg.Tls != nil {
		out.Tls = &mqttbridge.TlsConfig{
			CaFile:             cfg.Tls.CaFile,
			CertFile:           cfg.Tls.CertFile,
			KeyFile:            cfg.Tls.KeyFile,
			InsecureSkipVerify: cfg.Tls.InsecureSkipVerify,
		}
	}
	return out
}

// startHeartbeat schedules a debug-level summary of the store's object count
// and the engine's mapping-rule count every 30s, matching the teacher's taskManager scheduler-registration
// style (internal/taskManager/updateDurationService.go).
func startHeartbeat(st *store.Store, engine *mapping.Engine[config.MappingRule]) gocron.Scheduler {
	s, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("creating scheduler: %s", err.Error())
	}

	_, err = s.NewJob(gocron.DurationJob(30*time.Second), gocron.NewTask(func() {
		log.Debugf("heartbeat: %d objects, %d mapping rules",
			len(st.GetAllInstances()), len(engine.List()))
	}))
	if err != nil {
		log.Fatalf("registering heartbeat job: %s", err.Error())
	}

	s.Start()
	return s
}
