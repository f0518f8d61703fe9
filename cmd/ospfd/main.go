// Command ospfd runs a single-area OSPFv2 routing process: it speaks
// Hello/DD/LSR/LSU/LSAck on the interfaces named in its config file,
// builds a link-state database, and installs the resulting routes into
// the kernel FIB.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ospfd/ospfd"
	"github.com/ospfd/ospfd/internal/config"
	"github.com/ospfd/ospfd/internal/ospfd"
)

var (
	configPath  string
	routerID    string
	daemonize   bool
	metricsAddr string
)

func main() {
	root := &cobra.Command{
		Use:   "ospfd",
		Short: "A single-area OSPFv2 routing daemon",
		RunE:  run,
	}

	root.Flags().StringVarP(&configPath, "config", "c", "/etc/ospfd.yaml", "path to the YAML config file")
	root.Flags().StringVar(&routerID, "router-id", "", "override the router ID from the config file")
	root.Flags().BoolVarP(&daemonize, "daemon", "d", false, "detach and redirect stdio to /tmp/ospf_daemon.log")
	root.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Prometheus metrics listen address")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

const daemonizedEnv = "OSPFD_DAEMONIZED"

func run(cmd *cobra.Command, args []string) error {
	if daemonize && os.Getenv(daemonizedEnv) == "" {
		return reexecDetached()
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if routerID != "" {
		cfg.RouterID = routerID
	}

	rid, err := cfg.RouterIDValue()
	if err != nil {
		return err
	}
	areaID, err := cfg.AreaIDValue()
	if err != nil {
		return err
	}

	r := ospfd.NewRouter(log, rid, areaID)

	if err := bindInterfaces(r, cfg); err != nil {
		return err
	}

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(metricsAddr, nil); err != nil {
			log.WithError(err).Warn("metrics server stopped")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("router_id", rid).Info("ospfd starting")
	err = r.Run(ctx, os.Stdin, os.Stdout)
	r.Close()
	return err
}

// bindInterfaces adds every configured interface to r, discovering the IP
// and mask from the host when the config leaves them unset.
func bindInterfaces(r *ospfd.Router, cfg *config.Config) error {
	discovered, err := ospfd.DiscoverInterfaces()
	if err != nil {
		return fmt.Errorf("ospfd: %w", err)
	}
	byName := make(map[string]ospfd.DiscoveredInterface, len(discovered))
	for _, d := range discovered {
		byName[d.Iface.Name] = d
	}

	for _, ic := range cfg.Interfaces {
		typ, err := ic.LinkType()
		if err != nil {
			return err
		}

		netIfi, err := net.InterfaceByName(ic.Name)
		if err != nil {
			return fmt.Errorf("ospfd: interface %s: %w", ic.Name, err)
		}

		ip, mask, err := resolveAddress(ic, byName[ic.Name])
		if err != nil {
			return fmt.Errorf("ospfd: interface %s: %w", ic.Name, err)
		}

		if err := r.AddInterface(netIfi, typ, ip, mask); err != nil {
			return err
		}

		i, ok := r.InterfaceByName(ic.Name)
		if !ok {
			return fmt.Errorf("ospfd: interface %s vanished after AddInterface", ic.Name)
		}
		ic.Apply(i)
	}

	return nil
}

func resolveAddress(ic config.InterfaceConfig, d ospfd.DiscoveredInterface) (ip, mask ospf2.ID, err error) {
	if ic.IP != "" && ic.Mask != "" {
		ip, err = parseIPv4(ic.IP)
		if err != nil {
			return ip, mask, err
		}
		mask, err = parseIPv4(ic.Mask)
		return ip, mask, err
	}
	if d.Iface == nil {
		return ip, mask, fmt.Errorf("no address configured and none discovered on the host")
	}
	return d.IP, d.Mask, nil
}

func parseIPv4(s string) (ospf2.ID, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return ospf2.ID{}, fmt.Errorf("%q is not a valid IPv4 address", s)
	}
	return ospf2.IDFromIP(ip), nil
}

// reexecDetached re-executes the current binary with the daemonized-marker
// environment variable set and stdio redirected to /tmp/ospf_daemon.log,
// then exits the parent.
func reexecDetached() error {
	logFile, err := os.OpenFile("/tmp/ospf_daemon.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("ospfd: failed to open daemon log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(os.Args[0], os.Args[1:]...)
	cmd.Env = append(os.Environ(), daemonizedEnv+"=1")
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{
		// Detach from this session so the daemon isn't killed by SIGHUP
		// when the launching terminal exits.
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ospfd: failed to detach: %w", err)
	}

	fmt.Printf("ospfd daemonized as pid %d, logging to /tmp/ospf_daemon.log\n", cmd.Process.Pid)
	return nil
}
