package main

import (
	"flag"
	"log"

	"github.com/golang/glog"

	"github.com/robotalks/xrlink/pkg/env"
	fx "github.com/robotalks/xrlink/pkg/framework"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	e := env.MustLoad().MustNewEnv()
	defer e.Close()

	runner := fx.NewRunner().HandleSignals()
	if e.Config.MQTTBrokerURL != "" {
		bridge, err := e.NewBridge()
		if err != nil {
			log.Fatalln(err)
		}
		runner.Go(bridge)
	}
	runner.Go(e.Session)
	if err := runner.Wait(); err != nil {
		glog.Errorf("exit: %v", err)
		glog.Flush()
		log.Fatalln(err)
	}
}
