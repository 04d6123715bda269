// commands.go: dbdriver subcommands
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	driverloader "github.com/agilira/go-driverloader"
)

type rootOptions struct {
	verbosity int
	logger    driverloader.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "dbdriver",
		Short: "Resolve, stage and probe database drivers",
		Long: `dbdriver inspects a driver dependency manifest the way a migration run
does: it picks the driver build for this platform, stages its native
libraries and opens a connection through it.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.logger = newLogger(cmd.ErrOrStderr(), opts.verbosity)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG)")

	cmd.AddCommand(
		newResolveCmd(),
		newStageCmd(opts),
		newProbeCmd(opts),
		newAliasesCmd(),
	)
	return cmd
}

func newResolveCmd() *cobra.Command {
	var (
		manifestPath string
		kind         string
		goos         string
		goarch       string
	)
	cmd := &cobra.Command{
		Use:   "resolve <library>",
		Short: "Show the asset variant selected for a platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, err := driverloader.DetectPlatform(goos, goarch)
			if err != nil {
				return err
			}
			manifest, err := driverloader.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			lib, group, err := driverloader.NewAssetResolver(manifest, platform).
				Resolve(args[0], driverloader.AssetKind(kind))
			if err != nil {
				return err
			}
			return printGroup(cmd.OutOrStdout(), lib, group, platform)
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "dependency manifest file")
	cmd.Flags().StringVar(&kind, "kind", string(driverloader.AssetNative), "asset kind: managed or native")
	cmd.Flags().StringVar(&goos, "os", runtime.GOOS, "target GOOS")
	cmd.Flags().StringVar(&goarch, "arch", runtime.GOARCH, "target GOARCH")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}

func printGroup(w io.Writer, lib *driverloader.LibraryNode, group driverloader.AssetGroup, platform driverloader.Platform) error {
	rid := group.Runtime
	if rid == "" {
		rid = "(portable)"
	}
	if _, err := fmt.Fprintf(w, "%s %s on %s: %s\n", lib.Name, lib.Version, platform, rid); err != nil {
		return err
	}
	for _, asset := range group.AssetPaths {
		if _, err := fmt.Fprintf(w, "  %s\n", asset); err != nil {
			return err
		}
	}
	return nil
}

func newStageCmd(root *rootOptions) *cobra.Command {
	var manifestPath, packageRoot, tempRoot string
	cmd := &cobra.Command{
		Use:   "stage <library>",
		Short: "Stage the native dependencies of a library into a new working directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, err := driverloader.HostPlatform()
			if err != nil {
				return err
			}
			manifest, err := driverloader.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			wd, err := driverloader.CreateWorkingDirectory(tempRoot)
			if err != nil {
				return err
			}
			stager := driverloader.NewNativeDependencyStager(manifest,
				driverloader.NewAssetResolver(manifest, platform), packageRoot,
				driverloader.WithStagerLogger(root.logger))
			result, err := stager.Stage(args[0], wd)
			if err != nil {
				return err
			}

			return printStageResult(cmd.OutOrStdout(), wd.Path(), result)
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "dependency manifest file")
	cmd.Flags().StringVarP(&packageRoot, "packages", "p", driverloader.DefaultPackageRoot(), "package root directory")
	cmd.Flags().StringVar(&tempRoot, "temp", "", "parent of the working directory")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}

func printStageResult(w io.Writer, dir string, result *driverloader.StageResult) error {
	if _, err := fmt.Fprintln(w, dir); err != nil {
		return err
	}
	for _, name := range result.Copied {
		if _, err := fmt.Fprintf(w, "  copied  %s\n", name); err != nil {
			return err
		}
	}
	for _, name := range result.Skipped {
		if _, err := fmt.Fprintf(w, "  present %s\n", name); err != nil {
			return err
		}
	}
	return nil
}

func newProbeCmd(root *rootOptions) *cobra.Command {
	var configPath string
	config := driverloader.LoaderConfig{}
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Load a driver and open a connection through it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				loaded, err := driverloader.LoadLoaderConfig(configPath)
				if err != nil {
					return err
				}
				config = loaded
			} else {
				config.ApplyDefaults()
				if err := config.Validate(); err != nil {
					return err
				}
			}

			var auditor driverloader.Auditor
			if config.AuditFile != "" {
				a, err := driverloader.NewArgusAuditor(config.AuditFile)
				if err != nil {
					return err
				}
				defer func() { _ = a.Close() }()
				auditor = a
			}

			provider, err := config.NewProvider(root.logger, auditor)
			if err != nil {
				return err
			}
			defer func() { _ = provider.Close() }()

			ctx := cmd.Context()
			conn, err := provider.GetConnection(ctx)
			if err != nil {
				return err
			}
			if err := conn.Open(ctx); err != nil {
				return fmt.Errorf("open %s connection: %w", provider.Definition().Name, err)
			}

			rd := conn.Driver()
			source := rd.ModulePath()
			if rd.Preloaded() {
				source = "linked into binary"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s ok (%s, %s)\n", provider.Definition().Name, rd.TypeName(), source)
			return err
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "loader configuration file")
	cmd.Flags().StringVarP(&config.Driver, "driver", "d", "", "driver name, e.g. postgresql")
	cmd.Flags().StringVar(&config.ConnectionString, "connection", "", "connection string")
	cmd.Flags().StringVarP(&config.ManifestPath, "manifest", "m", "", "dependency manifest file")
	cmd.Flags().StringVarP(&config.PackageRoot, "packages", "p", "", "package root directory")
	cmd.Flags().StringVar(&config.AuditFile, "audit", "", "security audit log file")
	return cmd
}

func newAliasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "aliases",
		Short: "List the driver names understood by default",
		RunE: func(cmd *cobra.Command, args []string) error {
			table := driverloader.DefaultDriverAliases()
			out := cmd.OutOrStdout()
			for _, alias := range table.Aliases() {
				def, err := table.Lookup(alias)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintf(out, "%-24s %-12s %s/%s\n", alias, def.Name, def.Library, def.TypeName); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
