package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	probeat "github.com/probeat/probeat-go"
	"github.com/probeat/probeat-go/internal/session"
)

func main() {
	var (
		sampleRate  = flag.Int("sample-rate", 48000, "render sample rate")
		sessionPath = flag.String("session", "", "path to a session file (JSON or YAML)")
		outPath     = flag.String("out", "out.wav", "output WAV path")
		seconds     = flag.Float64("seconds", 0, "render length (0 = one full pattern cycle)")
		tempo       = flag.Float64("tempo", 0, "override session tempo (bpm)")
	)
	flag.Parse()

	if *sessionPath == "" {
		log.Fatal("usage: probeat-render -session pattern.json [-out out.wav]")
	}
	data, err := os.ReadFile(*sessionPath)
	if err != nil {
		log.Fatal(err)
	}
	doc, err := session.Parse(data)
	if err != nil {
		log.Fatal(err)
	}

	eng, err := probeat.New(*sampleRate)
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close()
	eng.LoadSession(doc)
	if *tempo > 0 {
		eng.SetTempo(*tempo)
	}

	length := *seconds
	if length <= 0 {
		// one full cycle of the pattern at the loaded tempo
		length = 60 / eng.Tempo() / 4 * float64(eng.StepCount())
	}

	eng.Play()
	samples := probeat.RenderSamples(eng, length)
	wav := probeat.EncodeWAVFloat32LE(samples, *sampleRate, 2)
	if err := os.WriteFile(*outPath, wav, 0o644); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %s: %.2fs at %d Hz\n", *outPath, length, *sampleRate)
}
