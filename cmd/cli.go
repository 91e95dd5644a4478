// SPDX-License-Identifier: MIT
package cmd

import (
	"os"
	"time"

	"audio/internal/build"
	"audio/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ParseArgs builds the engine configuration from built-in defaults,
// optionally a YAML config file, and command-line flags, in that order
// of increasing precedence.
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetBuildFlags()

	var configPath string
	options, err := config.LoadConfig("")
	if err != nil {
		return nil, err
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return nil
			}
			loaded, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if loaded.OutputFile == "" {
				loaded.OutputFile = options.OutputFile
			}
			// Re-apply flags given on the command line so they take
			// precedence over the file.
			changed := map[string]string{}
			cmd.Flags().Visit(func(f *pflag.Flag) {
				changed[f.Name] = f.Value.String()
			})
			*options = *loaded
			for name, value := range changed {
				if err := cmd.Flags().Set(name, value); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options.TUIMode = true
			return nil
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "list"
			options.TUIMode = false
		},
	}
	rootCmd.AddCommand(listCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML configuration file")

	// Audio device configuration.
	rootCmd.PersistentFlags().IntVarP(&options.DeviceID, "device", "d", options.DeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVar(&options.OutputDeviceID, "output-device", options.OutputDeviceID,
		"Specify output device ID for synthesized audio")
	rootCmd.PersistentFlags().IntVarP(&options.Channels, "channels", "c", options.Channels,
		"Number of channels to record (1=mono, 2=stereo)")
	rootCmd.PersistentFlags().Float64VarP(&options.SampleRate, "sample-rate", "s", options.SampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&options.FramesPerBuffer, "frames-per-buffer", "b", options.FramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&options.LowLatency, "low-latency", "l", options.LowLatency,
		"Use low latency mode for real-time processing")

	// Phase-vocoder geometry.
	rootCmd.PersistentFlags().IntVar(&options.PV.Size, "pv-size", options.PV.Size,
		"Phase-vocoder FFT size (rounded up to a power of two)")
	rootCmd.PersistentFlags().IntVar(&options.PV.Olaps, "pv-olaps", options.PV.Olaps,
		"Phase-vocoder overlap count (rounded up to a power of two)")
	rootCmd.PersistentFlags().StringVar(&options.PV.Window, "pv-window", options.PV.Window,
		"Phase-vocoder analysis/synthesis window (hann, hamming, blackman, ...)")
	rootCmd.PersistentFlags().BoolVar(&options.PV.AutoTune, "pv-autotune", options.PV.AutoTune,
		"Automatically adapt FFT size and window to input energy")

	// Recording configuration.
	rootCmd.PersistentFlags().BoolVarP(&options.RecordInputStream, "record", "r", options.RecordInputStream,
		"Record audio from the specified input device")
	rootCmd.PersistentFlags().StringVarP(&options.OutputFile, "output", "o", options.OutputFile,
		"Output file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")

	// Debug configuration.
	rootCmd.PersistentFlags().BoolVarP(&options.Verbose, "verbose", "v", options.Verbose,
		"Show verbose output")

	if options.OutputFile == "" {
		options.OutputFile = "recording-" +
			time.Now().UTC().Format("02-01-2006-150405") +
			"." + options.Format
	}

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return options, nil
}
