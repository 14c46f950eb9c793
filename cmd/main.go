package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"fluxviewer/internal/artnet"
	"fluxviewer/internal/config"
	"fluxviewer/internal/control"
	"fluxviewer/internal/listener"
	"fluxviewer/internal/logger"
	"fluxviewer/internal/metrics"
	"fluxviewer/internal/osc"
	"fluxviewer/internal/records"
	"fluxviewer/internal/relay"
	"fluxviewer/internal/sacn"
	"fluxviewer/internal/serial"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
)

var (
	configFile string
	listPorts  bool
)

func init() {
	flag.StringVar(&configFile, "config", "configs/conf.toml", "Path to configuration file")
	flag.BoolVar(&listPorts, "list-ports", false, "Print the available serial ports and exit")
}

func main() {
	flag.Parse()

	if listPorts {
		if err := printPorts(); err != nil {
			fmt.Printf("failed to list serial ports: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.NewConfig(afero.NewOsFs(), configFile)
	if err != nil {
		fmt.Printf("configuration file read error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Printf("failed to create a logger: %v\n", err)
		os.Exit(1)
	}
	log.With(logger.Fields{"module": "logger"}).Debug("newLogger created ok")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, log, cfg.Metrics.Addr, reg); err != nil {
				log.With(logger.Fields{"module": "metrics"}).Errorf("metrics endpoint stopped: %v", err)
			}
		}()
	}

	opts := func(size int) listener.Options {
		return listener.Options{PollInterval: cfg.PollInterval(), EventBuffer: size}
	}
	oscL := osc.NewListener(log, opts(cfg.OSC.EventBuffer), m.Observer(control.ProtocolOSC))
	sacnL := sacn.NewListener(log, cfg.SACN.Port, opts(cfg.SACN.EventBuffer), m.Observer(control.ProtocolSACN))
	artL := artnet.NewListener(log,
		artnet.Options{Port: cfg.ArtNet.Port, AddressRange: cfg.ArtNet.AddressRange},
		opts(cfg.ArtNet.EventBuffer), m.Observer(control.ProtocolArtNet))
	serialL := serial.NewListener(log, opts(cfg.Serial.EventBuffer), m.Observer(control.ProtocolSerial))

	var wg sync.WaitGroup
	run := func(f func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(ctx)
		}()
	}
	run(oscL.Run)
	run(sacnL.Run)
	run(artL.Run)
	run(serialL.Run)

	var pub relay.Publisher = relay.NewLogPublisher(log.With(logger.Fields{"module": "relay"}))
	var client *relay.Client
	if cfg.Relay.Enabled {
		client = relay.NewClient(log, ConvertConfigRelay(cfg.Relay))
		if err := client.Start(ctx); err != nil {
			log.Error("failed to start MQTT service: ", err.Error())
			cancel()
		}
		pub = client
	}

	topics := relay.Topics{Prefix: cfg.Relay.TopicPrefix}
	relayLog := log.With(logger.Fields{"module": "relay"})
	run(func(ctx context.Context) { relay.Forward(ctx, relayLog, pub, oscL.Events(), topics.OSC) })
	run(func(ctx context.Context) { relay.Forward(ctx, relayLog, pub, sacnL.Events(), topics.SACN) })
	run(func(ctx context.Context) { relay.Forward(ctx, relayLog, pub, artL.Events(), topics.ArtNet) })
	run(func(ctx context.Context) { relay.Forward(ctx, relayLog, pub, serialL.Events(), topics.Serial) })

	if client != nil {
		dispatcher := &control.Dispatcher{
			OSC:    oscL,
			SACN:   sacnL,
			ArtNet: artL,
			Serial: serialL,
			Ports:  serial.ListPorts,
			Reply: func(ports []records.SerialPortInfo) {
				msg, err := json.Marshal(ports)
				if err == nil {
					err = client.Publish(topics.SerialPorts(), msg)
				}
				if err != nil {
					relayLog.Errorf("failed to publish serial ports: %v", err)
				}
			},
		}
		client.Subscribe(topics.Control(), func(topic string, payload []byte) {
			protocol, ok := topics.ControlProtocol(topic)
			if !ok {
				return
			}
			controlLog := log.With(logger.Fields{"module": "control", "protocol": protocol})
			if err := dispatcher.Handle(protocol, payload); err != nil {
				if errors.Is(err, listener.ErrListenerGone) {
					controlLog.Errorf("listener is no longer running: %v", err)
					return
				}
				controlLog.Warnf("request rejected: %v", err)
			}
		})
	}

	autostart(log, cfg, oscL, sacnL, artL, serialL)

	<-ctx.Done()

	wg.Wait()

	if client != nil {
		client.Stop()
	}

	log.Info("shutdown complete")
}

func autostart(log *logger.Log, cfg *config.Config, oscL *osc.Listener, sacnL *sacn.Listener,
	artL *artnet.Listener, serialL *serial.Listener,
) {
	var errs []error
	if cfg.OSC.Autostart {
		errs = append(errs, oscL.Dispatch(osc.Start{IP: cfg.OSC.IP, Port: cfg.OSC.Port}))
	}
	if cfg.SACN.Autostart {
		errs = append(errs, sacnL.Dispatch(sacn.Start{IP: cfg.SACN.IP}))
		for _, u := range cfg.SACN.Universes {
			errs = append(errs, sacnL.Dispatch(sacn.SubscribeUniverse{Universe: u}))
		}
	}
	if cfg.ArtNet.Autostart {
		errs = append(errs, artL.Dispatch(artnet.Start{IP: cfg.ArtNet.IP}))
		for _, u := range cfg.ArtNet.Universes {
			errs = append(errs, artL.Dispatch(artnet.SubscribeUniverse{Universe: u}))
		}
	}
	if cfg.Serial.Autostart {
		errs = append(errs, serialL.Dispatch(serial.Start{Port: cfg.Serial.Port, BaudRate: cfg.Serial.BaudRate}))
	}
	if err := errors.Join(errs...); err != nil {
		log.Errorf("autostart: %v", err)
	}
}

func printPorts() error {
	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("no serial ports found")
		return nil
	}
	for _, p := range ports {
		if p.Description != "" {
			fmt.Printf("%s\t%s\n", p.Name, p.Description)
			continue
		}
		fmt.Println(p.Name)
	}
	return nil
}

// ConvertConfigRelay converts the relay section into client settings.
func ConvertConfigRelay(cfg config.RelayConf) relay.Conf {
	return relay.Conf{
		ClientID: cfg.ClientID,
		Schema:   "tcp",
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Qos:      cfg.Qos,
	}
}
