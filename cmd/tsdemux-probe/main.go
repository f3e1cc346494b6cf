package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/asticode/go-astikit"
	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/streamline-av/tsdemux"
	"github.com/streamline-av/tsdemux/annexa2"
	"github.com/streamline-av/tsdemux/descriptor"
)

// Flags
var (
	ctx, cancel     = context.WithCancel(context.Background())
	cpuProfiling    = flag.Bool("cp", false, "if yes, cpu profiling is enabled")
	dataTypes       = astikit.NewFlagStrings()
	format          = flag.String("f", "", "the format")
	inputPath       = flag.String("i", "", "the input path")
	memoryProfiling = flag.Bool("mp", false, "if yes, memory profiling is enabled")
	logFile         = flag.String("log-file", "", "if set, logs rotate into this file instead of stderr")
	metricsAddr     = flag.String("metrics-addr", "", "if set, serves Prometheus metrics on this address")
	rateLimit       = flag.Float64("rate", 0, "if set, caps udp:// input to this many bytes/second")
)

// Prometheus counters, per SPEC_FULL.md's Domain Stack section: exposed
// on -metrics-addr. packetsTotal is incremented only by the packets
// subcommand; tablesCompletedTotal and pesUnitsTotal only by the data
// subcommand, for the kinds selected with -d.
var (
	packetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tsdemux_packets_total",
		Help: "Transport-stream packets read from the input.",
	})
	tablesCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tsdemux_tables_completed_total",
		Help: "PSI/SI tables completed, by kind.",
	}, []string{"kind"})
	pesUnitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tsdemux_pes_units_total",
		Help: "PES access units reassembled.",
	})
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s <data|packets|default>:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Var(dataTypes, "d", "the datatypes whitelist (all, pat, pmt, pes, eit, nit, sdt, tot)")
	cmd := astikit.FlagCmd()
	flag.Parse()

	configureLogging()
	handleSignals()
	serveMetrics()

	if *cpuProfiling {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	} else if *memoryProfiling {
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	}

	r, err := buildReader(ctx)
	if err != nil {
		log.Fatal(fmt.Errorf("tsdemux-probe: parsing input failed: %w", err))
	}
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}

	dmx := tsdemux.NewDemuxer(ctx, r)

	switch cmd {
	case "data":
		if err = data(dmx); err != nil {
			if !errors.Is(err, tsdemux.ErrNoMorePackets) {
				log.Fatal(fmt.Errorf("tsdemux-probe: fetching data failed: %w", err))
			}
		}
	case "packets":
		if err = packets(dmx); err != nil {
			if !errors.Is(err, tsdemux.ErrNoMorePackets) {
				log.Fatal(fmt.Errorf("tsdemux-probe: fetching packets failed: %w", err))
			}
		}
	default:
		var pgms []*Program
		if pgms, err = programs(dmx); err != nil {
			if !errors.Is(err, tsdemux.ErrNoMorePackets) {
				log.Fatal(fmt.Errorf("tsdemux-probe: fetching programs failed: %w", err))
			}
		}

		switch *format {
		case "json":
			e := json.NewEncoder(os.Stdout)
			e.SetIndent("", "  ")
			if err = e.Encode(pgms); err != nil {
				log.Fatal(fmt.Errorf("tsdemux-probe: json encoding to stdout failed: %w", err))
			}
		default:
			fmt.Println("Programs are:")
			for _, pgm := range pgms {
				log.Printf("* %s\n", pgm)
			}
		}
	}
}

// configureLogging points the package's logger at a lumberjack rotating
// file sink when -log-file is set, per SPEC_FULL.md's Domain Stack
// section; otherwise the default stderr logger is left untouched.
func configureLogging() {
	if *logFile == "" {
		return
	}
	l := &lumberjack.Logger{
		Filename:   *logFile,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
	}
	std := log.New(l, "", log.LstdFlags)
	tsdemux.SetLogger(std)
	log.SetOutput(l)
}

// serveMetrics starts a Prometheus /metrics endpoint on -metrics-addr,
// per SPEC_FULL.md's Domain Stack section. An empty addr leaves the
// counters registered but unserved, which is harmless.
func serveMetrics() {
	if *metricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
			log.Printf("tsdemux-probe: metrics server stopped: %v\n", err)
		}
	}()
}

func handleSignals() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch)
	go func() {
		for s := range ch {
			if s != syscall.SIGURG {
				log.Printf("Received signal %s\n", s)
			}
			switch s {
			case syscall.SIGABRT, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM:
				cancel()
				return
			}
		}
	}()
}

// rateLimitedReader wraps r, blocking each Read down to *rateLimit
// bytes/second — used for -i udp://... multicast input per SPEC_FULL.md's
// Domain Stack section, grounded on golang.org/x/time/rate's token
// bucket.
type rateLimitedReader struct {
	r   io.Reader
	lim *rate.Limiter
}

func (rl *rateLimitedReader) Read(p []byte) (int, error) {
	n, err := rl.r.Read(p)
	if n > 0 {
		if werr := rl.lim.WaitN(ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

func buildReader(ctx context.Context) (r io.Reader, err error) {
	if len(*inputPath) <= 0 {
		err = errors.New("use -i to indicate an input path")
		return
	}

	var u *url.URL
	if u, err = url.Parse(*inputPath); err != nil {
		err = fmt.Errorf("tsdemux-probe: parsing input path failed: %w", err)
		return
	}

	switch u.Scheme {
	case "udp":
		var addr *net.UDPAddr
		if addr, err = net.ResolveUDPAddr("udp", u.Host); err != nil {
			err = fmt.Errorf("tsdemux-probe: resolving udp addr %s failed: %w", u.Host, err)
			return
		}

		var c *net.UDPConn
		if c, err = net.ListenMulticastUDP("udp", nil, addr); err != nil {
			err = fmt.Errorf("tsdemux-probe: listening on multicast udp addr %s failed: %w", u.Host, err)
			return
		}
		c.SetReadBuffer(4096)
		r = c

		if *rateLimit > 0 {
			r = &rateLimitedReader{r: r, lim: rate.NewLimiter(rate.Limit(*rateLimit), int(*rateLimit))}
		}
	default:
		var f *os.File
		if f, err = os.Open(*inputPath); err != nil {
			err = fmt.Errorf("tsdemux-probe: opening %s failed: %w", *inputPath, err)
			return
		}
		r = f
	}
	return
}

func packets(dmx *tsdemux.Demuxer) (err error) {
	var p *tsdemux.Packet
	log.Println("Fetching packets...")
	for {
		if p, err = dmx.NextPacket(); err != nil {
			if errors.Is(err, tsdemux.ErrNoMorePackets) {
				err = nil
				break
			}
			err = fmt.Errorf("tsdemux-probe: getting next packet failed: %w", err)
			return
		}
		packetsTotal.Inc()

		log.Printf("PKT: %d\n", p.Header.PID)
		log.Printf("  Continuity Counter: %v\n", p.Header.ContinuityCounter)
		log.Printf("  Payload Unit Start Indicator: %v\n", p.Header.PayloadUnitStartIndicator)
		log.Printf("  Has Payload: %v\n", p.Header.HasPayload)
		log.Printf("  Has Adaptation Field: %v\n", p.Header.HasAdaptationField)
		log.Printf("  Transport Error Indicator: %v\n", p.Header.TransportErrorIndicator)
		log.Printf("  Transport Priority: %v\n", p.Header.TransportPriority)
		log.Printf("  Transport Scrambling Control: %v\n", p.Header.TransportScramblingControl)
		if p.Header.HasAdaptationField {
			log.Printf("  Adaptation Field: %+v\n", p.AdaptationField)
		}
	}
	return nil
}

func data(dmx *tsdemux.Demuxer) (err error) {
	var logAll, logEIT, logNIT, logPAT, logPES, logPMT, logSDT, logTOT bool
	if _, ok := dataTypes.Map["all"]; ok {
		logAll = true
	}
	if _, ok := dataTypes.Map["eit"]; ok {
		logEIT = true
	}
	if _, ok := dataTypes.Map["nit"]; ok {
		logNIT = true
	}
	if _, ok := dataTypes.Map["pat"]; ok {
		logPAT = true
	}
	if _, ok := dataTypes.Map["pes"]; ok {
		logPES = true
	}
	if _, ok := dataTypes.Map["pmt"]; ok {
		logPMT = true
	}
	if _, ok := dataTypes.Map["sdt"]; ok {
		logSDT = true
	}
	if _, ok := dataTypes.Map["tot"]; ok {
		logTOT = true
	}

	var d *tsdemux.DemuxerData
	log.Println("Fetching data...")
	for {
		if d, err = dmx.NextData(); err != nil {
			if errors.Is(err, tsdemux.ErrNoMorePackets) {
				err = nil
				break
			}
			err = fmt.Errorf("tsdemux-probe: getting next data failed: %w", err)
			return
		}

		if d.EIT != nil && (logAll || logEIT) {
			tablesCompletedTotal.WithLabelValues("eit").Inc()
			log.Printf("EIT: %d\n", d.PID)
			log.Println(eventsToString(d.EIT.Events))
		} else if d.NIT != nil && (logAll || logNIT) {
			tablesCompletedTotal.WithLabelValues("nit").Inc()
			log.Printf("NIT: %d\n", d.PID)
			log.Printf("  Network ID: %v\n", d.NIT.NetworkID)
			for _, ts := range d.NIT.TransportStreams {
				log.Printf("    transport stream %d on network %d\n", ts.TransportStreamID, ts.OriginalNetworkID)
			}
		} else if d.PAT != nil && (logAll || logPAT) {
			tablesCompletedTotal.WithLabelValues("pat").Inc()
			log.Printf("PAT: %d\n", d.PID)
			log.Printf("  Transport Stream ID: %v\n", d.PAT.TransportStreamID)
			log.Println("  Programs:")
			for _, p := range d.PAT.Programs {
				log.Printf("    %+v\n", p)
			}
		} else if d.PES != nil && (logAll || logPES) {
			pesUnitsTotal.Inc()
			log.Printf("PES: %d\n", d.PID)
			log.Printf("  Size: %d bytes\n", len(d.PES.Data))
			if d.PES.PTS != nil {
				log.Printf("  PTS: %s\n", d.PES.PTS.Duration())
			}
			if d.PES.DTS != nil {
				log.Printf("  DTS: %s\n", d.PES.DTS.Duration())
			}
		} else if d.PMT != nil && (logAll || logPMT) {
			tablesCompletedTotal.WithLabelValues("pmt").Inc()
			log.Printf("PMT: %d\n", d.PID)
			log.Printf("  ProgramNumber: %v\n", d.PMT.ProgramNumber)
			log.Printf("  PCR PID: %v\n", d.PMT.PCRPID)
			log.Println("  Elementary Streams:")
			for _, s := range d.PMT.ElementaryStreams {
				log.Printf("    %+v\n", s)
			}
			log.Println("  Program Descriptors:")
			for _, dsc := range d.PMT.ProgramDescriptors {
				log.Printf("    %s\n", descriptorToString(dsc))
			}
		} else if d.SDT != nil && (logAll || logSDT) {
			tablesCompletedTotal.WithLabelValues("sdt").Inc()
			log.Printf("SDT: %d\n", d.PID)
			for _, s := range d.SDT.Services {
				log.Printf("    service %d running=%d\n", s.ServiceID, s.RunningStatus)
			}
		} else if d.TOT != nil && (logAll || logTOT) {
			tablesCompletedTotal.WithLabelValues("tot").Inc()
			log.Printf("TOT: %d\n", d.PID)
			log.Printf("  UTC Time: %s\n", d.TOT.UTCTime.Format(time.RFC3339))
		}
	}
	return
}

func programs(dmx *tsdemux.Demuxer) (o []*Program, err error) {
	var d *tsdemux.DemuxerData
	pgmsToProcess := make(map[uint16]bool)
	pgms := make(map[uint16]*Program)
	log.Println("Fetching data...")
	for {
		if d, err = dmx.NextData(); err != nil {
			if errors.Is(err, tsdemux.ErrNoMorePackets) {
				err = nil
				break
			}
			err = fmt.Errorf("tsdemux-probe: getting next data failed: %w", err)
			return
		}

		if d.PAT != nil {
			for _, p := range d.PAT.Programs {
				if p.ProgramNumber > 0 {
					if _, ok := pgms[p.ProgramNumber]; !ok {
						pgmsToProcess[p.ProgramNumber] = true
						pgms[p.ProgramNumber] = newProgram(p.ProgramNumber, p.ProgramMapID)
					}
				}
			}
		} else if d.PMT != nil {
			if _, ok := pgmsToProcess[d.PMT.ProgramNumber]; !ok {
				continue
			}

			for _, dsc := range d.PMT.ProgramDescriptors {
				pgms[d.PMT.ProgramNumber].Descriptors = append(pgms[d.PMT.ProgramNumber].Descriptors, descriptorToString(dsc))
			}

			for _, es := range d.PMT.ElementaryStreams {
				s := newStream(es.ElementaryPID, es.StreamType)
				for _, esd := range es.ElementaryStreamDescriptors {
					s.Descriptors = append(s.Descriptors, descriptorToString(esd))
				}
				pgms[d.PMT.ProgramNumber].Streams = append(pgms[d.PMT.ProgramNumber].Streams, s)
			}

			delete(pgmsToProcess, d.PMT.ProgramNumber)
			if len(pgmsToProcess) == 0 {
				break
			}
		}
	}

	for _, p := range pgms {
		o = append(o, p)
	}
	return
}

// Program represents a demuxed program, the probe's default output shape.
type Program struct {
	Descriptors []string  `json:"descriptors,omitempty"`
	ID          uint16    `json:"id,omitempty"`
	MapID       uint16    `json:"map_id,omitempty"`
	Streams     []*Stream `json:"streams,omitempty"`
}

// Stream represents one elementary stream of a Program.
type Stream struct {
	Descriptors []string           `json:"descriptors,omitempty"`
	ID          uint16             `json:"id,omitempty"`
	Type        tsdemux.StreamType `json:"type,omitempty"`
}

func newProgram(id, mapID uint16) *Program {
	return &Program{ID: id, MapID: mapID}
}

func newStream(id uint16, t tsdemux.StreamType) *Stream {
	return &Stream{ID: id, Type: t}
}

func (p Program) String() (o string) {
	o = fmt.Sprintf("[%d] - Map ID: %d", p.ID, p.MapID)
	for _, d := range p.Descriptors {
		o += fmt.Sprintf(" - %s", d)
	}
	for _, s := range p.Streams {
		o += fmt.Sprintf("\n  * %s", s.String())
	}
	return
}

func (s Stream) String() (o string) {
	t := fmt.Sprintf("unlisted stream type %d", s.Type)
	switch s.Type {
	case tsdemux.StreamTypeMPEG1Video:
		t = "MPEG-1 video"
	case tsdemux.StreamTypeMPEG2Video:
		t = "MPEG-2 video"
	case tsdemux.StreamTypeMPEG1Audio:
		t = "MPEG-1 audio"
	case tsdemux.StreamTypeMPEG2HalvedSampleRateAudio:
		t = "MPEG-2 halved sample rate audio"
	case tsdemux.StreamTypeMPEG2PacketizedData:
		t = "DVB subtitles/VBI or AC-3"
	case tsdemux.StreamTypeAACAudio:
		t = "AAC audio"
	case tsdemux.StreamTypeHEAACAudio:
		t = "HE-AAC audio"
	case tsdemux.StreamTypeMPEG4Video:
		t = "MPEG-4 video"
	case tsdemux.StreamTypeLowerBitrateVideo:
		t = "H.264/H.265 or similar"
	}

	o = fmt.Sprintf("[%d] - Type: %s", s.ID, t)
	for _, d := range s.Descriptors {
		o += fmt.Sprintf(" - %s", d)
	}
	return
}

func eventsToString(es []tsdemux.EITDataEvent) string {
	var os []string
	for idx, e := range es {
		os = append(os, eventToString(idx, &e))
	}
	return strings.Join(os, "\n")
}

func eventToString(idx int, e *tsdemux.EITDataEvent) (s string) {
	s += fmt.Sprintf("- #%d | id: %d | start: %s | duration: %s | status: %s\n", idx+1, e.EventID, e.StartTime.Format("15:04:05"), e.Duration, runningStatusToString(e.RunningStatus))
	var os []string
	for _, d := range e.Descriptors {
		os = append(os, "  - "+descriptorToString(d))
	}
	return s + strings.Join(os, "\n")
}

func runningStatusToString(s uint8) string {
	switch s {
	case tsdemux.RunningStatusNotRunning:
		return "not running"
	case tsdemux.RunningStatusPausing:
		return "pausing"
	case tsdemux.RunningStatusRunning:
		return "running"
	}
	return "unknown"
}

// decodeText renders a raw Annex A.2-encoded descriptor field for
// display, falling back to the raw bytes if decoding fails so a
// malformed field never blanks out the whole line.
func decodeText(b []byte) string {
	s, _, err := annexa2.Decode(b)
	if err != nil {
		return fmt.Sprintf("%s (undecoded: %v)", b, err)
	}
	return s
}

func descriptorToString(d *descriptor.Descriptor) string {
	switch d.Tag {
	case descriptor.DescriptorTagAC3:
		return fmt.Sprintf("[AC3] ac3 asvc: %d | bsid: %d | component type: %d | mainid: %d | info: %s", d.AC3.ASVC, d.AC3.BSID, d.AC3.ComponentType, d.AC3.MainID, d.AC3.AdditionalInfo)
	case descriptor.DescriptorTagComponent:
		return fmt.Sprintf("[Component] language: %s | text: %s | component tag: %d | component type: %d | stream content: %d | stream content ext: %d", d.Component.ISO639LanguageCode, decodeText(d.Component.Text), d.Component.ComponentTag, d.Component.ComponentType, d.Component.StreamContent, d.Component.StreamContentExt)
	case descriptor.DescriptorTagContent:
		var os []string
		for _, i := range d.Content.Items {
			os = append(os, fmt.Sprintf("content nibble 1: %d | content nibble 2: %d | user byte: %d", i.ContentNibbleLevel1, i.ContentNibbleLevel2, i.UserByte))
		}
		return "[Content] " + strings.Join(os, " - ")
	case descriptor.DescriptorTagExtendedEvent:
		s := fmt.Sprintf("[Extended event] language: %s | text: %s", d.ExtendedEvent.ISO639LanguageCode, decodeText(d.ExtendedEvent.Text))
		for _, i := range d.ExtendedEvent.Items {
			s += fmt.Sprintf(" | %s: %s", decodeText(i.Description), decodeText(i.Content))
		}
		return s
	case descriptor.DescriptorTagISO639LanguageAndAudioType:
		return fmt.Sprintf("[ISO639 language and audio type] language: %s | audio type: %d", d.ISO639LanguageAndAudioType.Language, d.ISO639LanguageAndAudioType.Type)
	case descriptor.DescriptorTagMaximumBitrate:
		return fmt.Sprintf("[Maximum bitrate] maximum bitrate: %d", d.MaximumBitrate.Bitrate)
	case descriptor.DescriptorTagNetworkName:
		return fmt.Sprintf("[Network name] network name: %s", decodeText(d.NetworkName.Name))
	case descriptor.DescriptorTagParentalRating:
		var os []string
		for _, i := range d.ParentalRating.Items {
			os = append(os, fmt.Sprintf("country: %s | rating: %d | minimum age: %d", i.CountryCode, i.Rating, i.MinimumAge()))
		}
		return "[Parental rating] " + strings.Join(os, " - ")
	case descriptor.DescriptorTagPrivateDataSpecifier:
		return fmt.Sprintf("[Private data specifier] specifier: %d", d.PrivateDataSpecifier.Specifier)
	case descriptor.DescriptorTagService:
		return fmt.Sprintf("[Service] service %s | provider: %s", decodeText(d.Service.Name), decodeText(d.Service.Provider))
	case descriptor.DescriptorTagShortEvent:
		return fmt.Sprintf("[Short event] language: %s | name: %s | text: %s", d.ShortEvent.Language, decodeText(d.ShortEvent.EventName), decodeText(d.ShortEvent.Text))
	case descriptor.DescriptorTagStreamIdentifier:
		return fmt.Sprintf("[Stream identifier] stream identifier component tag: %d", d.StreamIdentifier.ComponentTag)
	case descriptor.DescriptorTagSubtitling:
		var os []string
		for _, i := range d.Subtitling.Items {
			os = append(os, fmt.Sprintf("subtitling composition page: %d | ancillary page %d: %s", i.CompositionPageID, i.AncillaryPageID, i.Language))
		}
		return "[Subtitling] " + strings.Join(os, " - ")
	case descriptor.DescriptorTagTeletext:
		var os []string
		for _, t := range d.Teletext.Items {
			os = append(os, fmt.Sprintf("Teletext page %01d%02d: %s", t.Magazine, t.Page, t.Language))
		}
		return "[Teletext] " + strings.Join(os, " - ")
	}
	return fmt.Sprintf("unlisted descriptor tag 0x%x", d.Tag)
}
