package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/eigerco/levelkv/internal/config"
	"github.com/eigerco/levelkv/pkg/kv"
	"github.com/eigerco/levelkv/pkg/log"
)

// cli holds the state shared by every subcommand.
type cli struct {
	configPath string
	dbPath     string
	logLevel   string
	logFormat  string

	cfg *config.Config
	out io.Writer
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "levelkv",
		Short:         "Inspect and edit a levelkv store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "path to a TOML config file (default ~/.levelkv/config.toml)")
	flags.StringVar(&c.dbPath, "db", "", "store directory, overrides [db].path")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.StringVar(&c.logFormat, "log-format", "", "log format: console or json")

	rootCmd.AddCommand(
		c.getCmd(),
		c.putCmd(),
		c.deleteCmd(),
		c.scanCmd(),
		c.countCmd(),
		c.compactCmd(),
		c.optionsCmd(),
	)
	return rootCmd
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.dbPath != "" {
		cfg.DB.Path = config.ExpandHome(c.dbPath)
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}

	level, err := log.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	loggerType, err := log.ParseLoggerType(cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("log format: %w", err)
	}
	log.Init(log.Options{LogLevel: level, Type: loggerType, Output: os.Stderr})

	c.cfg = cfg
	c.out = cmd.OutOrStdout()
	log.CLI.Debug().Str("db", cfg.DB.Path).Str("command", cmd.Name()).Msg("configured")
	return nil
}

// withDB opens the configured store, runs fn and closes the store.
func (c *cli) withDB(fn func(d *kv.DB) error) (err error) {
	d, err := kv.OpenOrCreate(c.cfg.DB.Path, c.cfg.Options)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := d.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(d)
}

func (c *cli) readOptions() ([]kv.ReadOption, error) {
	ro, err := kv.ParseReadOptions(c.cfg.Read)
	if err != nil {
		return nil, err
	}
	return []kv.ReadOption{kv.WithReadOptions(ro)}, nil
}

// writeOptions merges the [write] table with the --sync flag.
func (c *cli) writeOptions(cmd *cobra.Command, sync bool) ([]kv.WriteOption, error) {
	wo, err := kv.ParseWriteOptions(c.cfg.Write)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("sync") {
		wo.Sync = sync
	}
	return []kv.WriteOption{kv.WithWriteOptions(wo)}, nil
}

func (c *cli) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value stored under KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ro, err := c.readOptions()
			if err != nil {
				return err
			}
			return c.withDB(func(d *kv.DB) error {
				value, err := d.Get([]byte(args[0]), ro...)
				if err != nil {
					return err
				}
				if value == nil {
					return fmt.Errorf("key %q not found", args[0])
				}
				_, err = fmt.Fprintln(c.out, string(value))
				return err
			})
		},
	}
}

func (c *cli) putCmd() *cobra.Command {
	var sync bool
	cmd := &cobra.Command{
		Use:   "put KEY VALUE",
		Short: "Store VALUE under KEY",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wo, err := c.writeOptions(cmd, sync)
			if err != nil {
				return err
			}
			return c.withDB(func(d *kv.DB) error {
				return d.Put([]byte(args[0]), []byte(args[1]), wo...)
			})
		},
	}
	cmd.Flags().BoolVar(&sync, "sync", false, "flush the write to stable storage")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	var sync bool
	cmd := &cobra.Command{
		Use:   "delete KEY",
		Short: "Remove KEY and report whether it existed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wo, err := c.writeOptions(cmd, sync)
			if err != nil {
				return err
			}
			return c.withDB(func(d *kv.DB) error {
				existed, err := d.Delete([]byte(args[0]), wo...)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(c.out, existed)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&sync, "sync", false, "flush the write to stable storage")
	return cmd
}

func (c *cli) scanCmd() *cobra.Command {
	var (
		from, to string
		reverse  bool
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Print key/value pairs in key order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := kv.RangeOptions{Reversed: reverse}
			if cmd.Flags().Changed("from") {
				opts.From = []byte(from)
			}
			if cmd.Flags().Changed("to") {
				opts.To = []byte(to)
			}
			return c.withDB(func(d *kv.DB) error {
				n := 0
				_, err := d.Each(opts, func(key, value []byte) error {
					if limit > 0 && n >= limit {
						return kv.ErrStopIteration
					}
					n++
					_, err := fmt.Fprintf(c.out, "%s\t%s\n", key, value)
					return err
				})
				return err
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first key to visit")
	cmd.Flags().StringVar(&to, "to", "", "stop before this key")
	cmd.Flags().BoolVar(&reverse, "reverse", false, "walk in descending key order")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many pairs, 0 for no limit")
	return cmd
}

func (c *cli) countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of keys in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDB(func(d *kv.DB) error {
				n, err := d.Size()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(c.out, n)
				return err
			})
		},
	}
}

func (c *cli) compactCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Compact the store, or the range [from, to)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var start, end []byte
			if cmd.Flags().Changed("from") {
				start = []byte(from)
			}
			if cmd.Flags().Changed("to") {
				end = []byte(to)
			}
			return c.withDB(func(d *kv.DB) error {
				if err := d.Compact(start, end); err != nil {
					return err
				}
				log.CLI.Info().Str("from", from).Str("to", to).Msg("compaction finished")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first key of the range")
	cmd.Flags().StringVar(&to, "to", "", "end of the range, exclusive")
	return cmd
}

func (c *cli) optionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "Print the resolved store options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := kv.ParseOptions(c.cfg.Options)
			if err != nil {
				return err
			}
			cache := "engine default"
			if size, ok := opts.BlockCacheSize(); ok {
				cache = fmt.Sprint(size)
			}
			rows := []struct {
				name  string
				value any
			}{
				{kv.OptEngine, opts.Engine()},
				{kv.OptCreateIfMissing, opts.CreateIfMissing()},
				{kv.OptErrorIfExists, opts.ErrorIfExists()},
				{kv.OptParanoidChecks, opts.ParanoidChecks()},
				{kv.OptWriteBufferSize, opts.WriteBufferSize()},
				{kv.OptMaxOpenFiles, opts.MaxOpenFiles()},
				{kv.OptBlockCacheSize, cache},
				{kv.OptBlockSize, opts.BlockSize()},
				{kv.OptBlockRestartInterval, opts.BlockRestartInterval()},
				{kv.OptCompression, opts.Compression()},
			}
			for _, row := range rows {
				if _, err := fmt.Fprintf(c.out, "%s = %v\n", row.name, row.value); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
