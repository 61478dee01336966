/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stops vault's tasks",
	Long:  `Stops vault's tasks, which are started previously by 'start' command.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := readPidFile(pidFile)
		if err != nil {
			return err
		}

		process, err := os.FindProcess(pid)
		if err != nil {
			return fmt.Errorf("finding process %v: %w", pid, err)
		}
		if err := process.Signal(syscall.SIGTERM); err != nil {
			return fmt.Errorf("signalling process %v: %w", pid, err)
		}
		fmt.Printf("✅ stop requested for process %v\n", pid)
		return nil
	},
}

func writePidFile(path string) error {
	if err := atomic.WriteFile(path, strings.NewReader(strconv.Itoa(os.Getpid()))); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}
	return nil
}

func readPidFile(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading pid file, is the service started? %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid file %v", path)
	}
	return pid, nil
}

func init() {
	rootCmd.AddCommand(stopCmd)

	stopCmd.Flags().StringVar(&pidFile, "pid-file", "vault.pid", "file that keeps the process id of 'start'")
}
