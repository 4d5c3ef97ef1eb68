// Command button-sensor debounces GPIO buttons and publishes their gestures to MQTT.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sweeney/button-sensor/internal/button"
	"github.com/sweeney/button-sensor/internal/config"
	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/history"
	"github.com/sweeney/button-sensor/internal/logic"
	"github.com/sweeney/button-sensor/internal/mqtt"
	"github.com/sweeney/button-sensor/internal/serial"
	"github.com/sweeney/button-sensor/internal/status"
	"github.com/sweeney/button-sensor/internal/tick"
	"github.com/sweeney/button-sensor/internal/web"
)

func main() {
	if err := newRootCommand(run).Execute(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

type options struct {
	configPath string
	broker     string
	httpAddr   string
	heartbeat  time.Duration
	printState bool
}

// newRootCommand builds the CLI. start receives the resolved configuration.
func newRootCommand(start func(cfg config.Config, printState bool) error) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "button-sensor",
		Short: "Debounce GPIO buttons and publish gestures to MQTT",
		Long: `button-sensor samples buttons wired to GPIO lines, debounces them and
publishes press, release, long press, long release and double click events
to MQTT. A status page is served over HTTP.

Example:
  button-sensor --config /etc/button-sensor.yaml
  button-sensor --print-state`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return start(cfg, opts.printState)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to YAML config (defaults if empty)")
	cmd.Flags().StringVar(&opts.broker, "broker", config.DefaultBroker, "MQTT broker address")
	cmd.Flags().StringVar(&opts.httpAddr, "http", config.DefaultHTTPAddr, "HTTP status address (empty to disable)")
	cmd.Flags().DurationVar(&opts.heartbeat, "heartbeat", config.DefaultHeartbeat, "Heartbeat interval (0 to disable)")
	cmd.Flags().BoolVar(&opts.printState, "print-state", false, "Print current button states and exit")

	return cmd
}

// loadConfig reads the config file, if any, and applies flags the user set.
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			return config.Config{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("broker") {
		cfg.Broker = opts.broker
	}
	if flags.Changed("http") {
		cfg.HTTP = opts.httpAddr
	}
	if flags.Changed("heartbeat") {
		cfg.Heartbeat = opts.heartbeat
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

type namedButton struct {
	name string
	*button.Button
}

// buildButtons binds every configured button to pins, ticking on src.
func buildButtons(pins button.Pins, src *tick.Source, cfg config.Config) ([]namedButton, error) {
	buttons := make([]namedButton, 0, len(cfg.Buttons))
	for _, bc := range cfg.Buttons {
		polarity, err := bc.ParsePolarity()
		if err != nil {
			return nil, fmt.Errorf("button %q: %w", bc.Name, err)
		}
		mode, err := bc.Mode()
		if err != nil {
			return nil, fmt.Errorf("button %q: %w", bc.Name, err)
		}
		b, err := button.NewWithMode(pins, src, button.PinID(bc.Pin), polarity, mode, bc.Timing(src))
		if err != nil {
			return nil, fmt.Errorf("button %q: %w", bc.Name, err)
		}
		buttons = append(buttons, namedButton{name: bc.Name, Button: b})
	}
	return buttons, nil
}

func statusConfig(cfg config.Config) status.Config {
	sc := status.Config{
		TickUs:      cfg.Tick.Microseconds(),
		UpdateMs:    cfg.Update.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTP,
	}
	for _, b := range cfg.Buttons {
		sc.Buttons = append(sc.Buttons, status.ButtonConfig{
			Name:          b.Name,
			Pin:           b.Pin,
			Polarity:      b.Polarity,
			PressMs:       b.PressDebounce.Milliseconds(),
			ReleaseMs:     b.ReleaseDebounce.Milliseconds(),
			LongPressMs:   b.LongPress.Milliseconds(),
			DoubleClickMs: b.DoubleClick.Milliseconds(),
		})
	}
	return sc
}

func run(cfg config.Config, printState bool) error {
	lines, err := gpio.NewLines(cfg.Chip)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer lines.Close()

	src := tick.NewSource(cfg.Tick)
	buttons, err := buildButtons(lines, src, cfg)
	if err != nil {
		return fmt.Errorf("init buttons: %w", err)
	}

	// Print state mode: raw levels, no debouncing.
	if printState {
		for _, b := range buttons {
			fmt.Println(rawState(lines, b))
		}
		return nil
	}

	instance := uuid.New().String()

	publisher, err := mqtt.NewRealPublisher(cfg.Broker, "button-sensor-"+instance[:8], instance)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	var mirror eventSink
	if cfg.Serial.Port != "" {
		s, err := serial.Open(cfg.Serial.Port, cfg.Serial.Baud)
		if err != nil {
			return fmt.Errorf("init serial: %w", err)
		}
		defer s.Close()
		mirror = s
		log.Printf("mirroring events to %s at %d baud", cfg.Serial.Port, cfg.Serial.Baud)
	}

	var store *history.Store
	var events web.EventLog
	if cfg.History != "" {
		store, err = history.Open(cfg.History)
		if err != nil {
			return fmt.Errorf("init history: %w", err)
		}
		defer store.Close()
		events = store
		if counts, err := store.Counts(context.Background()); err != nil {
			log.Printf("history counts: %v", err)
		} else {
			for name, c := range counts {
				log.Printf("history: %s has %d recorded events", name, c.Total())
			}
		}
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	startTime := time.Now()
	tracker := status.NewTracker(startTime, instance, statusConfig(cfg))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker, events)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go src.Run(ctx)
	go runUpdater(ctx, buttons, cfg.Update)

	detector := logic.NewDetector(startTime)
	for _, b := range buttons {
		detector.Add(b.name, b)
	}

	log.Printf("started: buttons=%d tick=%v update=%v broker=%s heartbeat=%v",
		len(buttons), cfg.Tick, cfg.Update, cfg.Broker, cfg.Heartbeat)

	ticker := time.NewTicker(cfg.Update)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	r := &runner{
		detector:   detector,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		clock:      src,
		heartbeat:  cfg.Heartbeat,
		now:        time.Now,
		mirror:     mirror,
	}
	if store != nil {
		r.history = store
	}
	return r.runLoop(ticker.C, sigCh)
}

func rawState(pins button.Pins, b namedButton) string {
	high := pins.ReadPin(b.Pin())
	pressed := high == (b.Polarity() == button.ActiveHigh)
	state := logic.StateReleased
	if pressed {
		state = logic.StatePressed
	}
	level := "LOW"
	if high {
		level = "HIGH"
	}
	return fmt.Sprintf("%s: %s (GPIO%d %s, %s)", b.name, state, b.Pin(), level, b.Polarity())
}

// runUpdater advances every button's state machine once per period.
func runUpdater(ctx context.Context, buttons []namedButton, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, b := range buttons {
				b.Update()
			}
		}
	}
}

type eventSink interface {
	Publish(event logic.Event) error
}

type eventRecorder interface {
	Record(ctx context.Context, event logic.Event) error
}

// runner owns the consumer side: it drains button flags and fans events out.
// mqttStatus, tracker, mirror and history may be nil.
type runner struct {
	detector   *logic.Detector
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	clock      tick.Clock
	heartbeat  time.Duration
	now        func() time.Time
	mirror     eventSink
	history    eventRecorder
}

func (r *runner) runLoop(poll <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			r.shutdown(s)
			return nil

		case <-poll:
			t := r.now()
			for _, event := range r.detector.Poll(t) {
				r.dispatch(event)
			}

			if hbData := r.detector.CheckHeartbeat(t, r.heartbeat); hbData != nil {
				r.sendHeartbeat(hbData)
			}

			r.refreshTracker()
		}
	}
}

func (r *runner) dispatch(event logic.Event) {
	log.Printf("event: %s %s (state=%s)", event.Button, event.Type, event.State)
	if err := r.publisher.Publish(event); err != nil {
		log.Printf("publish error: %v", err)
		// Don't crash on publish failure
	}
	if r.mirror != nil {
		if err := r.mirror.Publish(event); err != nil {
			log.Printf("serial error: %v", err)
		}
	}
	if r.history != nil {
		if err := r.history.Record(context.Background(), event); err != nil {
			log.Printf("history error: %v", err)
		}
	}
}

func (r *runner) sendHeartbeat(hbData *logic.HeartbeatData) {
	var total int
	for _, c := range hbData.Counts {
		total += c.Total()
	}
	log.Printf("heartbeat: uptime=%v buttons=%d events=%d", hbData.Uptime, len(hbData.Counts), total)

	hbEvent := mqtt.SystemEvent{
		Timestamp: hbData.Timestamp,
		Event:     "HEARTBEAT",
	}
	if r.tracker != nil {
		// Refresh network info for heartbeat
		if net := readNetworkInfo(); net != nil {
			r.tracker.SetNetwork(net)
		}
		r.refreshTracker()
		hbEvent.RawPayload = status.FormatStatusEvent(r.tracker.Snapshot(), "HEARTBEAT", "")
	}
	if err := r.publisher.PublishSystem(hbEvent); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

func (r *runner) shutdown(s os.Signal) {
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}
	event := mqtt.SystemEvent{
		Timestamp: r.now(),
		Event:     "SHUTDOWN",
		Reason:    signalName,
		Retained:  true,
	}
	if r.tracker != nil {
		r.refreshTracker()
		event.RawPayload = status.FormatStatusEvent(r.tracker.Snapshot(), "SHUTDOWN", signalName)
	}
	if err := r.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
}

// refreshTracker copies detector state into the tracker for HTTP consumers.
func (r *runner) refreshTracker() {
	if r.tracker == nil {
		return
	}
	var now uint32
	if r.clock != nil {
		now = uint32(r.clock.Now())
	}
	r.tracker.Update(r.detector.CurrentState(), r.detector.EventCountsSnapshot(), now)
	if r.mqttStatus != nil {
		r.tracker.SetMQTTConnected(r.mqttStatus.IsConnected())
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
