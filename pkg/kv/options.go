package kv

import (
	"fmt"
	"sort"

	"github.com/eigerco/levelkv/pkg/db"
	"github.com/eigerco/levelkv/pkg/log"
)

// Option keys understood by ParseOptions.
const (
	OptCreateIfMissing      = "create_if_missing"
	OptErrorIfExists        = "error_if_exists"
	OptParanoidChecks       = "paranoid_checks"
	OptWriteBufferSize      = "write_buffer_size"
	OptMaxOpenFiles         = "max_open_files"
	OptBlockCacheSize       = "block_cache_size"
	OptBlockSize            = "block_size"
	OptBlockRestartInterval = "block_restart_interval"
	OptCompression          = "compression"
	OptEngine               = "engine"

	OptFillCache       = "fill_cache"
	OptVerifyChecksums = "verify_checksums"
	OptSync            = "sync"
)

const (
	DefaultWriteBufferSize      = 4 << 20
	DefaultMaxOpenFiles         = 1000
	DefaultBlockSize            = 4 << 10
	DefaultBlockRestartInterval = 16
)

type Compression uint8

const (
	NoCompression     Compression = 0x0
	SnappyCompression Compression = 0x1
)

func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case SnappyCompression:
		return "snappy"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// EngineKind names the storage engine a DB is opened with.
type EngineKind string

const (
	EnginePebble    EngineKind = "pebble"
	EngineGoLevelDB EngineKind = "goleveldb"
)

// Options is the validated, immutable configuration of a store. Build it
// with DefaultOptions or ParseOptions.
type Options struct {
	createIfMissing      bool
	errorIfExists        bool
	paranoidChecks       bool
	writeBufferSize      uint64
	maxOpenFiles         uint64
	blockCacheSize       uint64
	hasBlockCache        bool
	blockSize            uint64
	blockRestartInterval uint64
	compression          Compression
	engine               EngineKind
}

func DefaultOptions() Options {
	return Options{
		writeBufferSize:      DefaultWriteBufferSize,
		maxOpenFiles:         DefaultMaxOpenFiles,
		blockSize:            DefaultBlockSize,
		blockRestartInterval: DefaultBlockRestartInterval,
		compression:          SnappyCompression,
		engine:               EnginePebble,
	}
}

func (o Options) CreateIfMissing() bool        { return o.createIfMissing }
func (o Options) ErrorIfExists() bool          { return o.errorIfExists }
func (o Options) ParanoidChecks() bool         { return o.paranoidChecks }
func (o Options) WriteBufferSize() uint64      { return o.writeBufferSize }
func (o Options) MaxOpenFiles() uint64         { return o.maxOpenFiles }
func (o Options) BlockSize() uint64            { return o.blockSize }
func (o Options) BlockRestartInterval() uint64 { return o.blockRestartInterval }
func (o Options) Compression() Compression     { return o.compression }

// BlockCacheSize returns the configured cache size and whether one was set.
// When unset the engine chooses its own cache.
func (o Options) BlockCacheSize() (uint64, bool) { return o.blockCacheSize, o.hasBlockCache }

// Engine returns the engine kind, EnginePebble when none was chosen.
func (o Options) Engine() EngineKind {
	if o.engine == "" {
		return EnginePebble
	}
	return o.engine
}

func (o Options) engineConfig() db.Config {
	return db.Config{
		CreateIfMissing:      o.createIfMissing,
		ErrorIfExists:        o.errorIfExists,
		ParanoidChecks:       o.paranoidChecks,
		WriteBufferSize:      o.writeBufferSize,
		MaxOpenFiles:         o.maxOpenFiles,
		BlockCacheSize:       o.blockCacheSize,
		HasBlockCache:        o.hasBlockCache,
		BlockSize:            o.blockSize,
		BlockRestartInterval: o.blockRestartInterval,
		Compression:          db.Compression(o.compression),
	}
}

var knownOptions = map[string]bool{
	OptCreateIfMissing:      true,
	OptErrorIfExists:        true,
	OptParanoidChecks:       true,
	OptWriteBufferSize:      true,
	OptMaxOpenFiles:         true,
	OptBlockCacheSize:       true,
	OptBlockSize:            true,
	OptBlockRestartInterval: true,
	OptCompression:          true,
	OptEngine:               true,
}

// ParseOptions validates a loosely typed option bag into Options.
//
// Booleans must be bool. Sizes must be a non-negative Go integer of any
// width; bool, string and float values are rejected rather than coerced.
// compression must be an integer or Compression in {NoCompression,
// SnappyCompression} and engine a string or EngineKind naming a registered
// engine. Every violation is a *ConfigError naming the option. Keys with a
// nil value count as absent, absent keys take their default, and unknown
// keys are ignored.
func ParseOptions(raw map[string]any) (Options, error) {
	o := DefaultOptions()
	var err error

	if o.createIfMissing, err = boolOption(raw, OptCreateIfMissing, o.createIfMissing); err != nil {
		return Options{}, err
	}
	if o.errorIfExists, err = boolOption(raw, OptErrorIfExists, o.errorIfExists); err != nil {
		return Options{}, err
	}
	if o.paranoidChecks, err = boolOption(raw, OptParanoidChecks, o.paranoidChecks); err != nil {
		return Options{}, err
	}
	if o.writeBufferSize, err = uintOption(raw, OptWriteBufferSize, o.writeBufferSize); err != nil {
		return Options{}, err
	}
	if o.maxOpenFiles, err = uintOption(raw, OptMaxOpenFiles, o.maxOpenFiles); err != nil {
		return Options{}, err
	}
	if _, ok := lookup(raw, OptBlockCacheSize); ok {
		if o.blockCacheSize, err = uintOption(raw, OptBlockCacheSize, 0); err != nil {
			return Options{}, err
		}
		o.hasBlockCache = true
	}
	if o.blockSize, err = uintOption(raw, OptBlockSize, o.blockSize); err != nil {
		return Options{}, err
	}
	if o.blockRestartInterval, err = uintOption(raw, OptBlockRestartInterval, o.blockRestartInterval); err != nil {
		return Options{}, err
	}
	if o.compression, err = compressionOption(raw, o.compression); err != nil {
		return Options{}, err
	}
	if o.engine, err = engineOption(raw, o.engine); err != nil {
		return Options{}, err
	}

	for _, name := range sortedKeys(raw) {
		if !knownOptions[name] {
			log.Store.Debug().Str("option", name).Msg("ignoring unrecognized option")
		}
	}
	return o, nil
}

func lookup(raw map[string]any, name string) (any, bool) {
	v, ok := raw[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func boolOption(raw map[string]any, name string, def bool) (bool, error) {
	v, ok := lookup(raw, name)
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, &ConfigError{Option: name}
	}
	return b, nil
}

func uintOption(raw map[string]any, name string, def uint64) (uint64, error) {
	v, ok := lookup(raw, name)
	if !ok {
		return def, nil
	}
	n, ok := toUint(v)
	if !ok {
		return 0, &ConfigError{Option: name}
	}
	return n, nil
}

// toUint accepts the builtin integer kinds only. Named integer types such
// as Compression do not match and are handled by their own option.
func toUint(v any) (uint64, bool) {
	var i int64
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case int:
		i = int64(n)
	case int8:
		i = int64(n)
	case int16:
		i = int64(n)
	case int32:
		i = int64(n)
	case int64:
		i = n
	default:
		return 0, false
	}
	if i < 0 {
		return 0, false
	}
	return uint64(i), true
}

func compressionOption(raw map[string]any, def Compression) (Compression, error) {
	v, ok := lookup(raw, OptCompression)
	if !ok {
		return def, nil
	}
	var n uint64
	if c, isCompression := v.(Compression); isCompression {
		n = uint64(c)
	} else if n, ok = toUint(v); !ok {
		return 0, &ConfigError{Option: OptCompression}
	}
	// Compression(n) would wrap for n > 255, so range-check the wide value.
	if n != uint64(NoCompression) && n != uint64(SnappyCompression) {
		return 0, &ConfigError{Option: OptCompression}
	}
	return Compression(n), nil
}

func engineOption(raw map[string]any, def EngineKind) (EngineKind, error) {
	v, ok := lookup(raw, OptEngine)
	if !ok {
		return def, nil
	}
	var kind EngineKind
	switch e := v.(type) {
	case string:
		kind = EngineKind(e)
	case EngineKind:
		kind = e
	default:
		return "", &ConfigError{Option: OptEngine}
	}
	if _, registered := engines[kind]; !registered {
		return "", &ConfigError{Option: OptEngine}
	}
	return kind, nil
}

func sortedKeys(raw map[string]any) []string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ReadOptions control a single lookup.
type ReadOptions struct {
	FillCache       bool
	VerifyChecksums bool
}

func DefaultReadOptions() ReadOptions {
	return ReadOptions{FillCache: true}
}

type ReadOption func(*ReadOptions)

// WithFillCache controls whether blocks read for this call are cached.
func WithFillCache(fill bool) ReadOption {
	return func(o *ReadOptions) { o.FillCache = fill }
}

// WithVerifyChecksums forces block checksum verification for this call.
func WithVerifyChecksums(verify bool) ReadOption {
	return func(o *ReadOptions) { o.VerifyChecksums = verify }
}

// WithReadOptions replaces all read options at once.
func WithReadOptions(ro ReadOptions) ReadOption {
	return func(o *ReadOptions) { *o = ro }
}

func ParseReadOptions(raw map[string]any) (ReadOptions, error) {
	ro := DefaultReadOptions()
	var err error
	if ro.FillCache, err = boolOption(raw, OptFillCache, ro.FillCache); err != nil {
		return ReadOptions{}, err
	}
	if ro.VerifyChecksums, err = boolOption(raw, OptVerifyChecksums, ro.VerifyChecksums); err != nil {
		return ReadOptions{}, err
	}
	return ro, nil
}

func applyReadOptions(opts []ReadOption) db.ReadOptions {
	ro := DefaultReadOptions()
	for _, opt := range opts {
		opt(&ro)
	}
	return db.ReadOptions{FillCache: ro.FillCache, VerifyChecksums: ro.VerifyChecksums}
}

// WriteOptions control a single write or batch commit. A Sync write is
// flushed to stable storage before returning and survives an OS crash; an
// unsynced write only survives a process crash.
type WriteOptions struct {
	Sync bool
}

type WriteOption func(*WriteOptions)

func WithSync(sync bool) WriteOption {
	return func(o *WriteOptions) { o.Sync = sync }
}

// WithWriteOptions replaces all write options at once.
func WithWriteOptions(wo WriteOptions) WriteOption {
	return func(o *WriteOptions) { *o = wo }
}

func ParseWriteOptions(raw map[string]any) (WriteOptions, error) {
	var (
		wo  WriteOptions
		err error
	)
	if wo.Sync, err = boolOption(raw, OptSync, false); err != nil {
		return WriteOptions{}, err
	}
	return wo, nil
}

func applyWriteOptions(opts []WriteOption) db.WriteOptions {
	var wo WriteOptions
	for _, opt := range opts {
		opt(&wo)
	}
	return db.WriteOptions{Sync: wo.Sync}
}
