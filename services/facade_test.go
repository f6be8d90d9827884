package services

import (
	"context"
	"testing"
	"time"

	"Mikrotik-Dashboard/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func newTestRouterData(t *testing.T) (*RouterData, *MockExecutor) {
	t.Helper()
	ctrl := gomock.NewController(t)
	exec := NewMockExecutor(ctrl)
	return NewRouterData(exec, zap.NewNop()), exec
}

func expectQuery(exec *MockExecutor, path string, records []Record) {
	exec.EXPECT().EnsureConnected(gomock.Any(), "r1").Return(nil)
	exec.EXPECT().Execute(gomock.Any(), "r1", path, gomock.Any()).Return(records, nil)
}

func TestQueryPropagatesEnsureConnectedError(t *testing.T) {
	data, exec := newTestRouterData(t)
	authErr := errs.ConnectionFailed(errs.Authentication, nil)
	exec.EXPECT().EnsureConnected(gomock.Any(), "r1").Return(authErr)

	_, err := data.GetArpEntries(context.Background(), "r1")
	require.Error(t, err)
	assert.Same(t, authErr, err)
}

func TestGetResourceInfo(t *testing.T) {
	data, exec := newTestRouterData(t)
	expectQuery(exec, "/system/resource/print", []Record{{
		"cpu-load":          "12",
		"cpu-count":         "4",
		"uptime":            "1w2d",
		"version":           "7.14.1 (stable)",
		"free-memory":       "250",
		"total-memory":      "1000",
		"free-hdd-space":    "garbage",
		"board-name":        "RB5009",
		"architecture-name": "arm64",
	}})

	info, err := data.GetResourceInfo(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), info.CPULoad)
	assert.Equal(t, uint64(4), info.CPUCount)
	assert.Equal(t, uint64(75), info.MemoryUsedPercent)
	assert.Zero(t, info.FreeHdd)
	assert.Zero(t, info.TotalHdd)
	assert.Zero(t, info.HddUsedPercent)
	assert.Equal(t, "arm64", info.Architecture)
}

func TestGetResourceInfoEmptyReply(t *testing.T) {
	data, exec := newTestRouterData(t)
	expectQuery(exec, "/system/resource/print", nil)

	info, err := data.GetResourceInfo(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "unknown", info.Version)
	assert.Equal(t, "unknown", info.BoardName)
	assert.Equal(t, "0s", info.Uptime)
	assert.Zero(t, info.CPULoad)
}

func TestGetInterfacesJoinsAddresses(t *testing.T) {
	data, exec := newTestRouterData(t)
	exec.EXPECT().EnsureConnected(gomock.Any(), "r1").Return(nil).Times(2)
	exec.EXPECT().Execute(gomock.Any(), "r1", "/interface/print", gomock.Any()).Return([]Record{
		{".id": "*1", "name": "ether1", "type": "ether", "mtu": "1500", "running": "true", "rx-byte": "100", "tx-bytes": "200"},
		{".id": "*2", "name": "bridge", "mtu": "auto", "disabled": "yes"},
	}, nil)
	exec.EXPECT().Execute(gomock.Any(), "r1", "/ip/address/print", gomock.Any()).Return([]Record{
		{"address": "192.168.88.1/24", "network": "192.168.88.0", "interface": "ether1"},
	}, nil)

	ifaces, err := data.GetInterfaces(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, ifaces, 2)

	assert.Equal(t, "ether1", ifaces[0].Name)
	assert.True(t, ifaces[0].Running)
	assert.Equal(t, uint64(1500), ifaces[0].MTU)
	assert.Equal(t, uint64(100), ifaces[0].RxBytes)
	assert.Equal(t, uint64(200), ifaces[0].TxBytes)
	assert.Equal(t, uint64(1_000_000_000), ifaces[0].Speed)
	require.Len(t, ifaces[0].Addresses, 1)
	assert.Equal(t, "192.168.88.1/24", ifaces[0].Addresses[0].Address)

	assert.Equal(t, "unknown", ifaces[1].Type)
	assert.Zero(t, ifaces[1].MTU)
	assert.Zero(t, ifaces[1].Speed)
	assert.True(t, ifaces[1].Disabled)
	assert.NotNil(t, ifaces[1].Addresses)
	assert.Empty(t, ifaces[1].Addresses)
}

func TestGetWirelessNetworksCountsClients(t *testing.T) {
	data, exec := newTestRouterData(t)
	exec.EXPECT().EnsureConnected(gomock.Any(), "r1").Return(nil).Times(2)
	exec.EXPECT().Execute(gomock.Any(), "r1", "/interface/wireless/print", gomock.Any()).Return([]Record{
		{".id": "*5", "name": "wlan1", "ssid": "office", "wpa2-pre-shared-key": "secret", "frequency": "2412"},
	}, nil)
	exec.EXPECT().Execute(gomock.Any(), "r1", "/interface/wireless/registration-table/print", gomock.Any()).Return([]Record{
		{"interface": "wlan1"}, {"interface": "wlan1"}, {"interface": "wlan2"},
	}, nil)

	nets, err := data.GetWirelessNetworks(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, nets, 1)
	assert.Equal(t, uint64(2), nets[0].Clients)
	assert.Equal(t, "WPA2-PSK", nets[0].Security)
	assert.Equal(t, "auto", nets[0].Channel)
	assert.Equal(t, uint64(2412), nets[0].Frequency)
}

func TestGetWirelessClients(t *testing.T) {
	data, exec := newTestRouterData(t)
	expectQuery(exec, "/interface/wireless/registration-table/print", []Record{
		{"mac-address": "AA:BB:CC:DD:EE:FF", "signal-strength": "-67@HT20", "tx-rate": "144.4Mbps-20MHz/2S", "comment": "laptop"},
		{"signal-strength": "n/a"},
	})

	clients, err := data.GetWirelessClients(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, int64(-67), clients[0].SignalStrength)
	assert.Equal(t, uint64(144), clients[0].TxRate)
	assert.Equal(t, "laptop", clients[0].Name)
	assert.Zero(t, clients[1].SignalStrength)
	assert.Equal(t, "Client 2", clients[1].Name)
	assert.Equal(t, "2", clients[1].ID)
}

func TestGetFirewallRulesChainFilter(t *testing.T) {
	records := []Record{
		{".id": "*1", "chain": "input", "action": "accept", "bytes": "10"},
		{".id": "*2", "chain": "forward", "action": "drop"},
		{".id": "*3", "chain": "input", "action": "drop", "packets": "-4"},
	}

	t.Run("all chains", func(t *testing.T) {
		data, exec := newTestRouterData(t)
		expectQuery(exec, "/ip/firewall/filter/print", records)

		rules, err := data.GetFirewallRules(context.Background(), "r1", "")
		require.NoError(t, err)
		assert.Len(t, rules, 3)
	})

	t.Run("input only", func(t *testing.T) {
		data, exec := newTestRouterData(t)
		expectQuery(exec, "/ip/firewall/filter/print", records)

		rules, err := data.GetFirewallRules(context.Background(), "r1", "input")
		require.NoError(t, err)
		require.Len(t, rules, 2)
		for _, r := range rules {
			assert.Equal(t, "input", r.Chain)
		}
		assert.Equal(t, uint64(10), rules[0].Bytes)
		assert.Zero(t, rules[1].Packets)
	})

	t.Run("no match is empty not nil", func(t *testing.T) {
		data, exec := newTestRouterData(t)
		expectQuery(exec, "/ip/firewall/filter/print", records)

		rules, err := data.GetFirewallRules(context.Background(), "r1", "output")
		require.NoError(t, err)
		assert.NotNil(t, rules)
		assert.Empty(t, rules)
	})
}

func TestGetLogsLimit(t *testing.T) {
	records := make([]Record, 0, 8)
	for i := 0; i < 8; i++ {
		records = append(records, Record{"time": "12:00:0" + string(rune('0'+i)), "topics": "system,info", "message": "m"})
	}
	records[7]["topics"] = "system,error,critical"

	data, exec := newTestRouterData(t)
	expectQuery(exec, "/log/print", records)

	logs, err := data.GetLogs(context.Background(), "r1", 5)
	require.NoError(t, err)
	require.Len(t, logs, 5)
	assert.Equal(t, "12:00:03", logs[0].Time)
	assert.Equal(t, "12:00:07", logs[4].Time)
	assert.Equal(t, "error", logs[4].Level)
	for _, l := range logs {
		assert.NotEmpty(t, l.Level)
		assert.NotEmpty(t, l.Topics)
	}
}

func TestGetLogsDefaultLimit(t *testing.T) {
	records := make([]Record, DefaultLogLimit+20)
	for i := range records {
		records[i] = Record{}
	}
	data, exec := newTestRouterData(t)
	expectQuery(exec, "/log/print", records)

	logs, err := data.GetLogs(context.Background(), "r1", 0)
	require.NoError(t, err)
	assert.Len(t, logs, DefaultLogLimit)
	assert.Equal(t, "info", logs[0].Level)
}

func TestEmptyRepliesAreEmptyLists(t *testing.T) {
	ctx := context.Background()
	cases := map[string]struct {
		path string
		call func(d *RouterData) (any, error)
	}{
		"routes":  {"/ip/route/print", func(d *RouterData) (any, error) { return d.GetRoutingRules(ctx, "r1") }},
		"arp":     {"/ip/arp/print", func(d *RouterData) (any, error) { return d.GetArpEntries(ctx, "r1") }},
		"users":   {"/user/print", func(d *RouterData) (any, error) { return d.GetUsers(ctx, "r1") }},
		"leases":  {"/ip/dhcp-server/lease/print", func(d *RouterData) (any, error) { return d.GetDhcpLeases(ctx, "r1") }},
		"address": {"/ip/address/print", func(d *RouterData) (any, error) { return d.GetAddresses(ctx, "r1") }},
		"queues":  {"/queue/simple/print", func(d *RouterData) (any, error) { return d.GetQueues(ctx, "r1") }},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			data, exec := newTestRouterData(t)
			expectQuery(exec, tc.path, nil)

			got, err := tc.call(data)
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestGetDhcpLeasesDefaults(t *testing.T) {
	data, exec := newTestRouterData(t)
	expectQuery(exec, "/ip/dhcp-server/lease/print", []Record{
		{"address": "192.168.88.10", "host-name": "printer", "dynamic": "true"},
	})

	leases, err := data.GetDhcpLeases(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, leases, 1)
	assert.Equal(t, "printer", leases[0].Hostname)
	assert.Equal(t, "unknown", leases[0].Status)
	assert.True(t, leases[0].Dynamic)
	assert.Equal(t, "1", leases[0].ID)
}

func TestSetInterfaceDisabled(t *testing.T) {
	data, exec := newTestRouterData(t)
	exec.EXPECT().EnsureConnected(gomock.Any(), "r1").Return(nil)
	exec.EXPECT().Execute(gomock.Any(), "r1", "/interface/print", []string{"?name=ether2", "=.proplist=.id"}).
		Return([]Record{{".id": "*2"}}, nil)
	exec.EXPECT().Execute(gomock.Any(), "r1", "/interface/set", []string{"=.id=*2", "=disabled=true"}).
		Return(nil, nil)

	require.NoError(t, data.SetInterfaceDisabled(context.Background(), "r1", "ether2", true))
}

func TestSetInterfaceDisabledUnknownInterface(t *testing.T) {
	data, exec := newTestRouterData(t)
	expectQuery(exec, "/interface/print", nil)

	err := data.SetInterfaceDisabled(context.Background(), "r1", "ether9", false)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.NotFound))
}

func TestGetInterfaceTraffic(t *testing.T) {
	data, exec := newTestRouterData(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	data.now = func() time.Time { return now }

	exec.EXPECT().EnsureConnected(gomock.Any(), "r1").Return(nil)
	exec.EXPECT().Execute(gomock.Any(), "r1", "/interface/monitor-traffic", []string{"=interface=ether1", "=once="}).
		Return([]Record{{"rx-bits-per-second": "8000", "tx-bits-per-second": "1.2kbps", "rx-packets-per-second": "10"}}, nil)

	stats, err := data.GetInterfaceTraffic(context.Background(), "r1", "ether1")
	require.NoError(t, err)
	assert.Equal(t, uint64(8000), stats.RxBitsPerSec)
	assert.Equal(t, uint64(1), stats.TxBitsPerSec)
	assert.Equal(t, uint64(10), stats.RxPacketsPerS)
	assert.Equal(t, now, stats.Timestamp)
	assert.Equal(t, "r1", stats.ConnectionID)
}

func TestGetInterfaceTrafficRequiresName(t *testing.T) {
	data, _ := newTestRouterData(t)
	_, err := data.GetInterfaceTraffic(context.Background(), "r1", "")
	assert.True(t, errs.Is(err, errs.Validation))
}

func TestExecuteRawCommand(t *testing.T) {
	data, exec := newTestRouterData(t)
	exec.EXPECT().EnsureConnected(gomock.Any(), "r1").Return(nil)
	exec.EXPECT().Execute(gomock.Any(), "r1", "/ip/address/print", []string{"?interface=ether1"}).
		Return([]Record{{"address": "10.0.0.1/24"}}, nil)

	res, err := data.ExecuteRawCommand(context.Background(), "r1", "/ip address print ?interface=ether1")
	require.NoError(t, err)
	assert.Equal(t, "/ip address print ?interface=ether1", res.Command)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "10.0.0.1/24", res.Records[0]["address"])
}

func TestExecuteRawCommandRejectsWrites(t *testing.T) {
	data, _ := newTestRouterData(t)
	_, err := data.ExecuteRawCommand(context.Background(), "r1", "/system/reboot")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Validation))
}
