// kview is a simple CLI tool for browsing collections through a stream.
//
// Usage:
//
//	kview <data.toml>                  # interactive mode
//	kview -l <data.toml>               # list mode (print all)
//	kview -l -n 20 <data.toml>         # list first 20 items
//	kview -c kview.toml <data.toml>    # stream, store and log settings
//
// The data file holds one TOML table per collection. Records are pulled
// from the stream only as the screen needs them, so a reader who lingers
// lets the transaction time out and the stream reopens its cursor.
//
// Interactive mode:
//
//	j/↓    scroll down
//	k/↑    scroll up
//	g      jump to first
//	G      jump to last
//	/      restart the stream at a key
//	q/Esc  quit
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/dacapoday/kvstream"
	"github.com/dacapoday/kvstream/internal/logger"
	"github.com/dacapoday/kvstream/keyrange"
	"github.com/dacapoday/kvstream/kv"
	"github.com/dacapoday/kvstream/stream"
)

// config is the layout of the -c file.
//
//	[log]
//	level = "debug"
//	file = "/tmp/kview.log"
//
//	[store]
//	txn_timeout = "2s"
//
//	[stream]
//	collection = "planets"
//	direction = "prev"
type config struct {
	Log    logger.Config `toml:"log"`
	Store  storeConfig   `toml:"store"`
	Stream stream.Config `toml:"stream"`
}

type storeConfig struct {
	TxnTimeout string `toml:"txn_timeout"`
}

func main() {
	listFlag := flag.Bool("l", false, "list mode (non-interactive)")
	countFlag := flag.Int("n", 0, "number of items (0 = all)")
	configFlag := flag.String("c", "", "config file")
	collectionFlag := flag.String("t", "", "collection (default: first in data file)")
	timeoutFlag := flag.Duration("timeout", 0, "transaction idle timeout (overrides config)")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: kview [-l] [-n count] [-c config] [-t collection] <data.toml>")
		os.Exit(1)
	}

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		fatal(err)
	}
	if *collectionFlag != "" {
		cfg.Stream.Collection = *collectionFlag
	}

	// interactive mode owns the terminal; logs go to a file or nowhere
	var logOut io.Writer = os.Stderr
	if !*listFlag {
		logOut = io.Discard
	}
	log, closer, err := logger.New(cfg.Log, logOut)
	if err != nil {
		fatal(err)
	}
	defer closer.Close()

	timeout := *timeoutFlag
	if timeout == 0 && cfg.Store.TxnTimeout != "" {
		if timeout, err = time.ParseDuration(cfg.Store.TxnTimeout); err != nil {
			fatal(errors.Wrap(err, "store.txn_timeout"))
		}
	}

	db := kv.New(kv.WithTxnTimeout(timeout), kv.WithLogger(log))
	defer db.Close()
	if err = db.LoadFile(flag.Arg(0)); err != nil {
		fatal(err)
	}

	if cfg.Stream.Collection == "" {
		names := db.Collections()
		if len(names) == 0 {
			fatal(errors.New("data file holds no collections"))
		}
		cfg.Stream.Collection = names[0]
	}

	if *listFlag {
		runList(db, cfg.Stream, log, *countFlag)
		return
	}

	runInteractive(db, cfg.Stream, log)
}

func loadConfig(path string) (cfg config, err error) {
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		err = errors.Wrap(err, "read config")
		return
	}
	if err = toml.Unmarshal(data, &cfg); err != nil {
		err = errors.Wrap(err, "decode config")
	}
	return
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func open(db *kv.DB, cfg stream.Config, log logrus.FieldLogger, extra ...stream.Option) (*stream.Stream, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	opts = append(opts, stream.WithLogger(log))
	opts = append(opts, extra...)
	return stream.New(db, cfg.Collection, opts...)
}

func runList(db *kv.DB, cfg stream.Config, log logrus.FieldLogger, count int) {
	s, err := open(db, cfg, log)
	if err != nil {
		fatal(err)
	}
	defer s.Close()

	n := 0
	for key, val := range s.All(context.Background()) {
		if count > 0 && n >= count {
			break
		}
		fmt.Printf("%s: %s\n", display(key, 40), display(val, 60))
		n++
	}
	if err := s.Err(); err != nil {
		fatal(err)
	}
}

func runInteractive(db *kv.DB, cfg stream.Config, log logrus.FieldLogger) {
	s, err := open(db, cfg, log)
	if err != nil {
		fatal(err)
	}

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		fatal(err)
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	v := &viewer{
		db:     db,
		cfg:    cfg,
		log:    log,
		stream: s,
	}
	defer func() { v.stream.Close() }()
	v.updateSize()
	v.fill()

	fmt.Print("\033[?25l\033[2J") // hide cursor, clear screen once
	defer fmt.Print("\033[?25h\033[2J\033[H") // show cursor, clear screen

	reader := bufio.NewReader(os.Stdin)

	for {
		// update terminal size on each render
		if v.updateSize() {
			v.fill()
		}
		v.render()

		b, err := reader.ReadByte()
		if err != nil {
			break
		}

		v.status = "" // clear status on any input

		switch b {
		case 'q', 3, 27: // q, Ctrl+C, Esc
			if b == 27 && reader.Buffered() > 0 {
				// escape sequence
				b2, _ := reader.ReadByte()
				if b2 == '[' {
					b3, _ := reader.ReadByte()
					switch b3 {
					case 'A': // up
						v.up()
					case 'B': // down
						v.down()
					case '5': // page up
						reader.ReadByte()
						v.pageUp()
					case '6': // page down
						reader.ReadByte()
						v.pageDown()
					}
				}
				continue
			}
			return
		case 'j':
			v.down()
		case 'k':
			v.up()
		case 'g':
			v.first()
		case 'G':
			v.last()
		case '/':
			v.search(reader)
		}
	}
}

type item struct {
	key, val []byte
}

// viewer keeps every record read so far; the stream only moves forward.
type viewer struct {
	db     *kv.DB
	cfg    stream.Config
	log    logrus.FieldLogger
	stream *stream.Stream
	items  []item
	top    int
	width  int
	height int
	atEnd  bool // stream exhausted
	status string
}

// updateSize checks terminal size and returns true if changed.
func (v *viewer) updateSize() bool {
	w, h, err := term.GetSize(int(os.Stdin.Fd()))
	if err != nil {
		w, h = 80, 24
	}
	if w == v.width && h == v.height {
		return false
	}
	v.width, v.height = w, h
	return true
}

func (v *viewer) lines() int {
	return v.height - 4 // title + separator + separator + status
}

// fill pulls records until the screen below top is full.
func (v *viewer) fill() {
	v.pull(v.top + v.lines())
}

// pull reads from the stream until n records are held or it ends.
func (v *viewer) pull(n int) {
	for !v.atEnd && len(v.items) < n {
		if !v.stream.Next(context.Background()) {
			v.atEnd = true
			if err := v.stream.Err(); err != nil {
				v.status = fmt.Sprintf("error: %v", err)
			}
			return
		}
		// stream records come from immutable snapshots
		v.items = append(v.items, item{key: v.stream.Key(), val: v.stream.Val()})
	}
}

func (v *viewer) down() {
	v.pull(v.top + v.lines() + 1)
	// at end, allow scrolling until only 1 item visible
	if v.top < len(v.items)-1 {
		v.top++
	}
}

func (v *viewer) up() {
	if v.top > 0 {
		v.top--
	}
}

func (v *viewer) pageDown() {
	for i := 0; i < v.lines()-1; i++ {
		v.down()
	}
}

func (v *viewer) pageUp() {
	for i := 0; i < v.lines()-1; i++ {
		v.up()
	}
}

func (v *viewer) first() {
	v.top = 0
}

func (v *viewer) last() {
	v.pull(int(^uint(0) >> 1))
	// back up to show a full screen
	v.top = max(len(v.items)-v.lines(), 0)
}

// restart replaces the stream with one starting at key.
func (v *viewer) restart(key []byte) error {
	rng, err := v.cfg.Range()
	if err != nil {
		return err
	}
	dir, err := kvstream.ParseDirection(v.cfg.Direction)
	if err != nil {
		return err
	}
	if !rng.Contains(key) {
		return errors.Wrapf(kvstream.ErrInvalidArgument, "key %q outside %s", key, rng)
	}
	if dir.Forward() {
		rng, err = keyrange.New(mo.Some(key), rng.Upper(), false, rng.UpperOpen())
	} else {
		rng, err = keyrange.New(rng.Lower(), mo.Some(key), rng.LowerOpen(), false)
	}
	if err != nil {
		return err
	}

	s, err := open(v.db, v.cfg, v.log, stream.WithRange(rng))
	if err != nil {
		return err
	}
	v.stream.Close()
	v.stream = s
	v.items = nil
	v.top = 0
	v.atEnd = false
	v.fill()
	return nil
}

func (v *viewer) search(reader *bufio.Reader) {
	// show search prompt
	fmt.Print("\033[?25h") // show cursor
	fmt.Printf("\033[%d;1H\033[K/", v.height)

	// read search input
	var input []byte
	for {
		b, err := reader.ReadByte()
		if err != nil {
			break
		}
		if b == 27 || b == 3 { // Esc or Ctrl+C
			fmt.Print("\033[?25l")
			v.status = ""
			return
		}
		if b == 13 || b == 10 { // Enter
			break
		}
		if b == 127 || b == 8 { // Backspace
			if len(input) > 0 {
				input = input[:len(input)-1]
				fmt.Print("\b \b")
			}
			continue
		}
		if b >= 32 && b < 127 {
			input = append(input, b)
			fmt.Print(string(b))
		}
	}
	fmt.Print("\033[?25l")

	if len(input) == 0 {
		v.status = ""
		return
	}

	if err := v.restart(input); err != nil {
		v.status = "out of range"
		return
	}
	if len(v.items) == 0 {
		v.status = "not found"
		return
	}
	v.status = fmt.Sprintf("jumped to: %s", display(input, 20))
}

func (v *viewer) render() {
	var b strings.Builder

	// move to top (no clear)
	b.WriteString("\033[H")

	// header
	fmt.Fprintf(&b, "[ kview: %s ]\033[K\r\n", v.cfg.Collection)
	b.WriteString(strings.Repeat("─", v.width))
	b.WriteString("\033[K\r\n")

	// items
	keyWidth := 32
	valWidth := v.width - keyWidth - 4
	if valWidth < 20 {
		valWidth = 20
	}

	lines := v.lines()
	for i := 0; i < lines; i++ {
		if v.top+i < len(v.items) {
			it := v.items[v.top+i]
			b.WriteString(display(it.key, keyWidth))
			b.WriteString(": ")
			b.WriteString(display(it.val, valWidth))
		} else {
			b.WriteString("~")
		}
		b.WriteString("\033[K\r\n")
	}

	// footer
	b.WriteString(strings.Repeat("─", v.width))
	b.WriteString("\033[K\r\n")

	// status line
	atStart := v.top == 0
	atEnd := v.atEnd && v.top+lines >= len(v.items)
	pos := ""
	if atStart && atEnd {
		pos = "[all]"
	} else if atStart {
		pos = "[top]"
	} else if atEnd {
		pos = "[end]"
	}
	gen := fmt.Sprintf("gen:%d", v.stream.Generation())

	if v.status != "" {
		b.WriteString(" ")
		b.WriteString(v.status)
	} else {
		b.WriteString(" j/k:scroll g/G:jump /:search q:quit")
	}
	b.WriteString(" ")
	b.WriteString(gen)
	b.WriteString(" ")
	b.WriteString(pos)
	b.WriteString("\033[K")

	fmt.Print(b.String())
}

// display formats bytes for display, truncating if needed.
// Tries to show as string if printable, otherwise hex.
func display(b []byte, maxLen int) string {
	if len(b) == 0 {
		return "(empty)"
	}

	// check if printable UTF-8
	if utf8.Valid(b) && isPrintable(b) {
		runes := []rune(string(b))
		if len(runes) > maxLen-3 {
			return string(runes[:maxLen-3]) + "..."
		}
		return string(runes)
	}

	// show as hex
	hex := fmt.Sprintf("%x", b)
	if len(hex) > maxLen-3 {
		return hex[:maxLen-3] + "..."
	}
	return hex
}

func isPrintable(b []byte) bool {
	for _, r := range string(b) {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
