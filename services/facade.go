package services

import (
	"context"
	"fmt"
	"time"

	"Mikrotik-Dashboard/errs"
	"Mikrotik-Dashboard/models"

	"go.uber.org/zap"
)

const DefaultLogLimit = 100

// RouterData exposes typed RouterOS queries. Every method ensures a session
// first, then maps the flat reply records into fixed-shape models. An empty
// router reply yields an empty, non-nil slice.
type RouterData struct {
	exec Executor
	log  *zap.Logger
	now  func() time.Time
}

func NewRouterData(exec Executor, log *zap.Logger) *RouterData {
	return &RouterData{exec: exec, log: log, now: time.Now}
}

func (d *RouterData) query(ctx context.Context, id, path string, params ...string) ([]Record, error) {
	if err := d.exec.EnsureConnected(ctx, id); err != nil {
		return nil, err
	}
	records, err := d.exec.Execute(ctx, id, path, params)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (d *RouterData) GetResourceInfo(ctx context.Context, id string) (*models.ResourceInfo, error) {
	records, err := d.query(ctx, id, "/system/resource/print")
	if err != nil {
		return nil, err
	}
	r := Record{}
	if len(records) > 0 {
		r = records[0]
	}

	info := &models.ResourceInfo{
		CPULoad:      num(r, "cpu-load"),
		CPUCount:     num(r, "cpu-count"),
		Uptime:       str(r, "uptime", "0s"),
		Version:      str(r, "version", unknown),
		FreeMemory:   num(r, "free-memory"),
		TotalMemory:  num(r, "total-memory"),
		FreeHdd:      num(r, "free-hdd-space"),
		TotalHdd:     num(r, "total-hdd-space"),
		BoardName:    str(r, "board-name", unknown),
		Architecture: str(r, "architecture-name", str(r, "architecture", unknown)),
	}
	info.MemoryUsedPercent = percentUsed(info.FreeMemory, info.TotalMemory)
	info.HddUsedPercent = percentUsed(info.FreeHdd, info.TotalHdd)
	return info, nil
}

// GetInterfaces joins /interface with /ip/address by interface name.
func (d *RouterData) GetInterfaces(ctx context.Context, id string) ([]models.Interface, error) {
	ifaces, err := d.query(ctx, id, "/interface/print")
	if err != nil {
		return nil, err
	}
	addrs, err := d.query(ctx, id, "/ip/address/print")
	if err != nil {
		return nil, err
	}

	byIface := make(map[string][]models.InterfaceAddress)
	for _, a := range addrs {
		name := a["interface"]
		byIface[name] = append(byIface[name], models.InterfaceAddress{
			Address:   a["address"],
			Network:   a["network"],
			Interface: name,
		})
	}

	out := make([]models.Interface, 0, len(ifaces))
	for i, r := range ifaces {
		name := r["name"]
		addresses := byIface[name]
		if addresses == nil {
			addresses = []models.InterfaceAddress{}
		}
		out = append(out, models.Interface{
			ID:         idOr(r, i),
			Name:       name,
			Type:       str(r, "type", unknown),
			MTU:        num(r, "mtu"),
			ActualMTU:  num(r, "actual-mtu"),
			L2MTU:      num(r, "l2mtu"),
			MacAddress: r["mac-address"],
			Running:    flag(r, "running"),
			Disabled:   flag(r, "disabled"),
			RxBytes:    num(r, "rx-byte", "rx-bytes"),
			TxBytes:    num(r, "tx-byte", "tx-bytes"),
			RxPackets:  num(r, "rx-packet", "rx-packets"),
			TxPackets:  num(r, "tx-packet", "tx-packets"),
			Speed:      linkSpeed(r),
			Addresses:  addresses,
		})
	}
	return out, nil
}

// GetWirelessNetworks counts registered clients per wireless interface.
func (d *RouterData) GetWirelessNetworks(ctx context.Context, id string) ([]models.WirelessNetwork, error) {
	nets, err := d.query(ctx, id, "/interface/wireless/print")
	if err != nil {
		return nil, err
	}
	regs, err := d.query(ctx, id, "/interface/wireless/registration-table/print")
	if err != nil {
		return nil, err
	}

	clients := make(map[string]uint64)
	for _, c := range regs {
		clients[c["interface"]]++
	}

	out := make([]models.WirelessNetwork, 0, len(nets))
	for i, r := range nets {
		name := r["name"]
		out = append(out, models.WirelessNetwork{
			ID:        idOr(r, i),
			Interface: name,
			SSID:      r["ssid"],
			Security:  wirelessSecurity(r),
			Disabled:  flag(r, "disabled"),
			Clients:   clients[name],
			Channel:   str(r, "channel", "auto"),
			Band:      r["band"],
			Frequency: num(r, "frequency"),
			Mode:      r["mode"],
		})
	}
	return out, nil
}

func (d *RouterData) GetWirelessClients(ctx context.Context, id string) ([]models.WirelessClient, error) {
	regs, err := d.query(ctx, id, "/interface/wireless/registration-table/print")
	if err != nil {
		return nil, err
	}

	out := make([]models.WirelessClient, 0, len(regs))
	for i, r := range regs {
		out = append(out, models.WirelessClient{
			ID:             idOr(r, i),
			Interface:      r["interface"],
			MacAddress:     r["mac-address"],
			LastActivity:   num(r, "last-activity"),
			SignalStrength: signed(r, "signal-strength"),
			TxRate:         num(r, "tx-rate"),
			RxRate:         num(r, "rx-rate"),
			Uptime:         str(r, "uptime", "0s"),
			Name:           str(r, "comment", fmt.Sprintf("Client %d", i+1)),
		})
	}
	return out, nil
}

// GetFirewallRules returns filter rules, optionally only those in chain. The
// chain is matched against the normalized rule.
func (d *RouterData) GetFirewallRules(ctx context.Context, id, chain string) ([]models.FirewallRule, error) {
	records, err := d.query(ctx, id, "/ip/firewall/filter/print")
	if err != nil {
		return nil, err
	}

	out := make([]models.FirewallRule, 0, len(records))
	for i, r := range records {
		rule := models.FirewallRule{
			ID:         idOr(r, i),
			Chain:      r["chain"],
			Action:     r["action"],
			SrcAddress: r["src-address"],
			DstAddress: r["dst-address"],
			Protocol:   r["protocol"],
			SrcPort:    r["src-port"],
			DstPort:    r["dst-port"],
			Disabled:   flag(r, "disabled"),
			Comment:    r["comment"],
			Bytes:      num(r, "bytes"),
			Packets:    num(r, "packets"),
		}
		if chain != "" && rule.Chain != chain {
			continue
		}
		out = append(out, rule)
	}
	return out, nil
}

func (d *RouterData) GetRoutingRules(ctx context.Context, id string) ([]models.RoutingRule, error) {
	records, err := d.query(ctx, id, "/ip/route/print")
	if err != nil {
		return nil, err
	}

	out := make([]models.RoutingRule, 0, len(records))
	for i, r := range records {
		out = append(out, models.RoutingRule{
			ID:         idOr(r, i),
			DstAddress: r["dst-address"],
			Gateway:    r["gateway"],
			Distance:   num(r, "distance"),
			Static:     flag(r, "static"),
			Disabled:   flag(r, "disabled"),
			Active:     flag(r, "active"),
		})
	}
	return out, nil
}

func (d *RouterData) GetArpEntries(ctx context.Context, id string) ([]models.ArpEntry, error) {
	records, err := d.query(ctx, id, "/ip/arp/print")
	if err != nil {
		return nil, err
	}

	out := make([]models.ArpEntry, 0, len(records))
	for i, r := range records {
		out = append(out, models.ArpEntry{
			ID:         idOr(r, i),
			Address:    r["address"],
			MacAddress: r["mac-address"],
			Interface:  r["interface"],
			Dynamic:    flag(r, "dynamic"),
			Invalid:    flag(r, "invalid"),
			Complete:   flag(r, "complete"),
		})
	}
	return out, nil
}

// GetLogs returns the most recent limit entries in router order. A limit of
// zero or less means DefaultLogLimit.
func (d *RouterData) GetLogs(ctx context.Context, id string, limit int) ([]models.LogEntry, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	records, err := d.query(ctx, id, "/log/print")
	if err != nil {
		return nil, err
	}
	if len(records) > limit {
		records = records[len(records)-limit:]
	}

	out := make([]models.LogEntry, 0, len(records))
	for i, r := range records {
		topics := r["topics"]
		out = append(out, models.LogEntry{
			ID:      idOr(r, i),
			Time:    r["time"],
			Topics:  topics,
			Message: r["message"],
			Level:   logLevel(topics),
		})
	}
	return out, nil
}

func (d *RouterData) GetUsers(ctx context.Context, id string) ([]models.RouterUser, error) {
	records, err := d.query(ctx, id, "/user/print")
	if err != nil {
		return nil, err
	}

	out := make([]models.RouterUser, 0, len(records))
	for i, r := range records {
		out = append(out, models.RouterUser{
			ID:        idOr(r, i),
			Name:      r["name"],
			Group:     r["group"],
			Disabled:  flag(r, "disabled"),
			LastLogin: r["last-logged-in"],
		})
	}
	return out, nil
}

func (d *RouterData) GetDhcpLeases(ctx context.Context, id string) ([]models.DhcpLease, error) {
	records, err := d.query(ctx, id, "/ip/dhcp-server/lease/print")
	if err != nil {
		return nil, err
	}

	out := make([]models.DhcpLease, 0, len(records))
	for i, r := range records {
		out = append(out, models.DhcpLease{
			ID:         idOr(r, i),
			Address:    r["address"],
			MacAddress: r["mac-address"],
			ClientID:   r["client-id"],
			Hostname:   firstOf(r, "host-name", "hostname"),
			Expires:    r["expires-after"],
			Server:     r["server"],
			Dynamic:    flag(r, "dynamic"),
			Status:     str(r, "status", unknown),
		})
	}
	return out, nil
}

func (d *RouterData) GetAddresses(ctx context.Context, id string) ([]models.Address, error) {
	records, err := d.query(ctx, id, "/ip/address/print")
	if err != nil {
		return nil, err
	}

	out := make([]models.Address, 0, len(records))
	for i, r := range records {
		out = append(out, models.Address{
			ID:        idOr(r, i),
			Address:   r["address"],
			Interface: r["interface"],
			Network:   r["network"],
			Disabled:  flag(r, "disabled"),
		})
	}
	return out, nil
}

func (d *RouterData) GetQueues(ctx context.Context, id string) ([]models.Queue, error) {
	records, err := d.query(ctx, id, "/queue/simple/print")
	if err != nil {
		return nil, err
	}

	out := make([]models.Queue, 0, len(records))
	for i, r := range records {
		out = append(out, models.Queue{
			ID:         idOr(r, i),
			Name:       r["name"],
			Target:     r["target"],
			MaxLimit:   r["max-limit"],
			BurstLimit: r["burst-limit"],
			Disabled:   flag(r, "disabled"),
		})
	}
	return out, nil
}

// SetInterfaceDisabled enables or disables the interface called name.
func (d *RouterData) SetInterfaceDisabled(ctx context.Context, id, name string, disabled bool) error {
	if name == "" {
		return errs.New(errs.Validation, "interface name is required")
	}
	records, err := d.query(ctx, id, "/interface/print", "?name="+name, "=.proplist=.id")
	if err != nil {
		return err
	}
	if len(records) == 0 || records[0][".id"] == "" {
		return errs.Newf(errs.NotFound, "interface %s not found", name)
	}

	_, err = d.exec.Execute(ctx, id, "/interface/set", []string{
		"=.id=" + records[0][".id"],
		fmt.Sprintf("=disabled=%t", disabled),
	})
	return err
}

// GetInterfaceTraffic samples the current rate of one interface.
func (d *RouterData) GetInterfaceTraffic(ctx context.Context, id, iface string) (*models.TrafficStats, error) {
	if iface == "" {
		return nil, errs.New(errs.Validation, "interface name is required")
	}
	records, err := d.query(ctx, id, "/interface/monitor-traffic", "=interface="+iface, "=once=")
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errs.Newf(errs.NotFound, "interface %s not found or no data", iface)
	}

	r := records[0]
	return &models.TrafficStats{
		ConnectionID:  id,
		InterfaceName: iface,
		RxBitsPerSec:  num(r, "rx-bits-per-second"),
		TxBitsPerSec:  num(r, "tx-bits-per-second"),
		RxPacketsPerS: num(r, "rx-packets-per-second"),
		TxPacketsPerS: num(r, "tx-packets-per-second"),
		Timestamp:     d.now(),
	}, nil
}

// ExecuteRawCommand runs a read-only command and returns the raw records.
func (d *RouterData) ExecuteRawCommand(ctx context.Context, id, command string) (*models.CommandResult, error) {
	path, params, err := ParseCommand(command)
	if err != nil {
		return nil, err
	}
	records, err := d.query(ctx, id, path, params...)
	if err != nil {
		return nil, err
	}

	result := &models.CommandResult{
		Command: command,
		Records: make([]map[string]string, 0, len(records)),
	}
	for _, r := range records {
		result.Records = append(result.Records, map[string]string(r))
	}
	d.log.Info("raw command executed",
		zap.String("connection_id", id),
		zap.String("path", path),
		zap.Int("records", len(records)),
	)
	return result, nil
}
