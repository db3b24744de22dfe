package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sshcollectorpro/netconfig/addone/device"
	"github.com/sshcollectorpro/netconfig/internal/model"
	"github.com/sshcollectorpro/netconfig/internal/service"
)

var cmdDevices = &cobra.Command{
	Use:   "devices",
	Short: "List inventory devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		devices, err := a.Devices.Devices(cmd.Context())
		if err != nil {
			return err
		}
		return printDevices(cmd.OutOrStdout(), devices)
	},
}

// add-device
type addDeviceFlags struct {
	hostname string
	ip       string
	port     int
	variant  string
	category string
	local    bool
}

var addDeviceFlagSet = &addDeviceFlags{}

var cmdAddDevice = &cobra.Command{
	Use:   "add-device",
	Short: "Add a device to the inventory",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := device.New(addDeviceFlagSet.variant); err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		d := model.Device{
			Hostname:         addDeviceFlagSet.hostname,
			IPv4:             addDeviceFlagSet.ip,
			Port:             addDeviceFlagSet.port,
			OSVariant:        addDeviceFlagSet.variant,
			Category:         addDeviceFlagSet.category,
			LocalCredentials: addDeviceFlagSet.local,
		}
		if err := a.Inventory.Save(cmd.Context(), &d); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "device %d added\n", d.ID)
		return nil
	},
}

var cmdInterfaces = &cobra.Command{
	Use:   "interfaces <device-id>",
	Short: "Show the interface table of a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseDeviceID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		table, err := a.Devices.Interfaces(cmd.Context(), id, cliIdentity)
		if err != nil {
			return err
		}
		return printInterfaces(cmd.OutOrStdout(), table)
	},
}

var cmdExec = &cobra.Command{
	Use:   "exec <device-id> <command>...",
	Short: "Run operational commands on a one-off session",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseDeviceID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.Devices.RunCommandsOnce(cmd.Context(), id, cliIdentity, args[1:])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(out, "\n"))
		return nil
	},
}

// backup
type backupFlags struct {
	source  string
	backend string
}

var backupFlagSet = &backupFlags{}

var cmdBackup = &cobra.Command{
	Use:   "backup <device-id>",
	Short: "Back up the running or startup configuration of a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseDeviceID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.Backups.Backup(cmd.Context(), id, cliIdentity, backupFlagSet.source, backupFlagSet.backend)
		if err != nil {
			return err
		}
		return yaml.NewEncoder(cmd.OutOrStdout()).Encode(rec)
	},
}

func init() {
	cmdAddDevice.Flags().StringVar(&addDeviceFlagSet.hostname, "hostname", "", "device hostname")
	cmdAddDevice.Flags().StringVar(&addDeviceFlagSet.ip, "ip", "", "management IPv4 address")
	cmdAddDevice.Flags().IntVar(&addDeviceFlagSet.port, "port", 22, "SSH port")
	cmdAddDevice.Flags().StringVar(&addDeviceFlagSet.variant, "variant", device.VariantIOS, "OS variant: "+strings.Join(device.Supported(), ", "))
	cmdAddDevice.Flags().StringVar(&addDeviceFlagSet.category, "category", model.CategorySwitch, "switch, router or firewall")
	cmdAddDevice.Flags().BoolVar(&addDeviceFlagSet.local, "local-credentials", false, "use per-device local accounts")
	_ = cmdAddDevice.MarkFlagRequired("hostname")
	_ = cmdAddDevice.MarkFlagRequired("ip")

	cmdBackup.Flags().StringVar(&backupFlagSet.source, "source", service.BackupSourceRunning, "running or startup")
	cmdBackup.Flags().StringVar(&backupFlagSet.backend, "backend", "", "storage backend override: local or minio")

	rootCmd.AddCommand(cmdDevices, cmdAddDevice, cmdInterfaces, cmdExec, cmdBackup)
}

func printDevices(w io.Writer, devices []model.Device) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tHOSTNAME\tADDRESS\tVARIANT\tCATEGORY")
	for _, d := range devices {
		fmt.Fprintf(tw, "%d\t%s\t%s:%d\t%s\t%s\n", d.ID, d.Hostname, d.IPv4, d.SSHPort(), d.OSVariant, d.Category)
	}
	return tw.Flush()
}

func printInterfaces(w io.Writer, table *service.InterfaceTable) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INTERFACE\tSTATUS\tPROTOCOL\tADDRESS\tDESCRIPTION")
	for _, r := range table.Interfaces {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Name, r.Status, r.Protocol, r.Address, r.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	c := table.Counts
	_, err := fmt.Fprintf(w, "\n%s: %d up, %d down, %d disabled, %d total\n", table.Device.Hostname, c.Up, c.Down, c.Disabled, c.Total)
	return err
}
