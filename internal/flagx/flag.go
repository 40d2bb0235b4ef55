// Package flagx holds the small pieces shared by the server and client
// configuration loaders: picking the config-file path out of the command
// line before the full flag set exists, and overlaying environment
// variables onto an already populated config struct.
package flagx

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// FilterArgs returns the subset of args made of allowed flags and their
// values. Both "-c conf.json" and "--config=conf.json" forms are kept; a
// following token that starts with '-' is never taken as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// ConfigPath extracts the JSON config path given with -c or -config.
// When neither flag is present, the value of envKey (if any) is used.
func ConfigPath(args []string, envKey string) string {
	var config string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.SetOutput(discard{})
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "--c", "--config"}))

	if config == "" && envKey != "" {
		config = os.Getenv(envKey)
	}
	return config
}

// JsonConfigFlags is ConfigPath over os.Args without an env fallback.
func JsonConfigFlags() string {
	return ConfigPath(os.Args[1:], "")
}

// Env overlays environment variables named Prefix+key onto config fields.
// Lookup defaults to os.LookupEnv. The first parse error is kept in Err so
// call sites can chain assignments and check once.
type Env struct {
	Prefix string
	Lookup func(string) (string, bool)
	Err    error
}

func NewEnv(prefix string) *Env {
	return &Env{Prefix: prefix, Lookup: os.LookupEnv}
}

func (e *Env) get(key string) (string, bool) {
	v, ok := e.Lookup(e.Prefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (e *Env) fail(key string, err error) {
	if e.Err == nil {
		e.Err = fmt.Errorf("env %s%s: %w", e.Prefix, key, err)
	}
}

func (e *Env) String(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *Env) Int(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = n
	}
}

func (e *Env) Float(key string, dst *float64) {
	if v, ok := e.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = f
	}
}

func (e *Env) Bool(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = b
	}
}

func (e *Env) Duration(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = d
	}
}

// List splits a comma-separated value, dropping empty items.
func (e *Env) List(key string, dst *[]string) {
	if v, ok := e.get(key); ok {
		*dst = SplitList(v)
	}
}

// SplitList splits s on commas and trims whitespace around each item.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
