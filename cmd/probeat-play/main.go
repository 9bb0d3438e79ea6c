package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	probeat "github.com/probeat/probeat-go"
	"github.com/probeat/probeat-go/internal/audio"
	"github.com/probeat/probeat-go/internal/pattern"
	"github.com/probeat/probeat-go/internal/session"
)

func main() {
	var (
		sampleRate  = flag.Int("sample-rate", 48000, "output sample rate")
		sessionPath = flag.String("session", "", "path to a session file (JSON or YAML)")
		tempo       = flag.Float64("tempo", 0, "override session tempo (bpm)")
		duration    = flag.Duration("duration", 0, "stop after this long (0 = play until interrupted)")
		useMIDI     = flag.Bool("midi", false, "mirror triggers to a MIDI out port")
		midiPort    = flag.String("midi-port", "", "substring of the MIDI out port name (default: first port)")
		quiet       = flag.Bool("quiet", false, "suppress step position output")
	)
	flag.Parse()

	opts := []probeat.Option{}
	var sendMIDI func(msg midi.Message) error
	if *useMIDI {
		send, err := openMIDIOut(*midiPort)
		if err != nil {
			log.Fatal(err)
		}
		defer midi.CloseDriver()
		sendMIDI = send
		opts = append(opts, probeat.WithTriggerTap(func(tr probeat.Trigger) {
			note, vel := uint8(tr.Note), uint8(tr.Velocity*127)
			_ = sendMIDI(midi.NoteOn(0, note, vel))
			time.AfterFunc(100*time.Millisecond, func() {
				_ = sendMIDI(midi.NoteOff(0, note))
			})
		}))
	}

	eng, err := probeat.New(*sampleRate, opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close()

	if *sessionPath != "" {
		data, err := os.ReadFile(*sessionPath)
		if err != nil {
			log.Fatal(err)
		}
		doc, err := session.Parse(data)
		if err != nil {
			log.Fatal(err)
		}
		eng.LoadSession(doc)
	} else {
		loadDemoPattern(eng)
	}
	if *tempo > 0 {
		eng.SetTempo(*tempo)
	}

	events := eng.Watch()
	backend, err := audio.NewPlayer(*sampleRate, eng)
	if err != nil {
		log.Fatal(err)
	}
	defer backend.Stop()

	<-eng.Ready()
	eng.Play()
	backend.Play()
	fmt.Printf("playing at %.0f bpm, %d steps (ctrl-c to stop)\n", eng.Tempo(), eng.StepCount())

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	var timeout <-chan time.Time
	if *duration > 0 {
		timeout = time.After(*duration)
	}
	for {
		select {
		case ev := <-events:
			if !*quiet && ev.Playing {
				fmt.Printf("\rstep %2d", ev.Step)
			}
		case <-interrupt:
			fmt.Println()
			eng.Stop()
			return
		case <-timeout:
			eng.Stop()
			return
		}
	}
}

func openMIDIOut(portName string) (func(msg midi.Message) error, error) {
	outs := midi.GetOutPorts()
	if len(outs) == 0 {
		return nil, fmt.Errorf("no MIDI out ports available")
	}
	if portName == "" {
		return midi.SendTo(outs[0])
	}
	port, err := midi.FindOutPort(portName)
	if err != nil {
		return nil, fmt.Errorf("find MIDI port %q: %w", portName, err)
	}
	return midi.SendTo(port)
}

// loadDemoPattern fills the engine with a small groove so the command does
// something audible without a session file.
func loadDemoPattern(eng *probeat.Engine) {
	kick := newDemoTrack("kick", -12)
	for i := 0; i < 16; i += 4 {
		kick.Steps[i] = true
	}
	bass := newDemoTrack("bass", -24)
	bass.Steps[2], bass.Steps[7], bass.Steps[10], bass.Steps[15] = true, true, true, true
	lead := newDemoTrack("lead", 7)
	lead.Steps[4], lead.Steps[12] = true, true
	eng.AddTrack(kick)
	eng.AddTrack(bass)
	eng.AddTrack(lead)
}

func newDemoTrack(id string, pitch int) pattern.Track {
	s := pattern.DefaultSettings()
	s.Pitch = pitch
	return pattern.Track{
		ID:       id,
		Name:     id,
		Kind:     pattern.KindPitched,
		Steps:    make([]bool, 16),
		Settings: s,
	}
}
