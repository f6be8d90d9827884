package models

import "time"

// Normalized RouterOS records. Counters are never negative and default to
// zero when the router omits them.

type ResourceInfo struct {
	CPULoad           uint64 `json:"cpuLoad"`
	CPUCount          uint64 `json:"cpuCount"`
	Uptime            string `json:"uptime"`
	Version           string `json:"version"`
	FreeMemory        uint64 `json:"freeMemory"`
	TotalMemory       uint64 `json:"totalMemory"`
	MemoryUsedPercent uint64 `json:"memoryUsedPercent"`
	FreeHdd           uint64 `json:"freeHdd"`
	TotalHdd          uint64 `json:"totalHdd"`
	HddUsedPercent    uint64 `json:"hddUsedPercent"`
	BoardName         string `json:"boardName"`
	Architecture      string `json:"architecture"`
}

type InterfaceAddress struct {
	Address   string `json:"address"`
	Network   string `json:"network"`
	Interface string `json:"interface"`
}

type Interface struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Type       string             `json:"type"`
	MTU        uint64             `json:"mtu"`
	ActualMTU  uint64             `json:"actualMtu"`
	L2MTU      uint64             `json:"l2mtu"`
	MacAddress string             `json:"macAddress"`
	Running    bool               `json:"running"`
	Disabled   bool               `json:"disabled"`
	RxBytes    uint64             `json:"rxBytes"`
	TxBytes    uint64             `json:"txBytes"`
	RxPackets  uint64             `json:"rxPackets"`
	TxPackets  uint64             `json:"txPackets"`
	// Speed is the nominal link speed in bits per second, 0 when unknown.
	Speed      uint64             `json:"speed"`
	Addresses  []InterfaceAddress `json:"addresses"`
}

type WirelessNetwork struct {
	ID        string `json:"id"`
	Interface string `json:"interface"`
	SSID      string `json:"ssid"`
	Security  string `json:"security"`
	Disabled  bool   `json:"disabled"`
	Clients   uint64 `json:"clients"`
	Channel   string `json:"channel"`
	Band      string `json:"band"`
	Frequency uint64 `json:"frequency"`
	Mode      string `json:"mode"`
}

type WirelessClient struct {
	ID           string `json:"id"`
	Interface    string `json:"interface"`
	MacAddress   string `json:"macAddress"`
	LastActivity uint64 `json:"lastActivity"`
	// SignalStrength is in dBm and usually negative; 0 means unknown.
	SignalStrength int64  `json:"signalStrength"`
	TxRate         uint64 `json:"txRate"`
	RxRate         uint64 `json:"rxRate"`
	Uptime         string `json:"uptime"`
	Name           string `json:"name"`
}

type FirewallRule struct {
	ID         string `json:"id"`
	Chain      string `json:"chain"`
	Action     string `json:"action"`
	SrcAddress string `json:"srcAddress"`
	DstAddress string `json:"dstAddress"`
	Protocol   string `json:"protocol"`
	SrcPort    string `json:"srcPort"`
	DstPort    string `json:"dstPort"`
	Disabled   bool   `json:"disabled"`
	Comment    string `json:"comment"`
	Bytes      uint64 `json:"bytes"`
	Packets    uint64 `json:"packets"`
}

type RoutingRule struct {
	ID         string `json:"id"`
	DstAddress string `json:"dstAddress"`
	Gateway    string `json:"gateway"`
	Distance   uint64 `json:"distance"`
	Static     bool   `json:"static"`
	Disabled   bool   `json:"disabled"`
	Active     bool   `json:"active"`
}

type ArpEntry struct {
	ID         string `json:"id"`
	Address    string `json:"address"`
	MacAddress string `json:"macAddress"`
	Interface  string `json:"interface"`
	Dynamic    bool   `json:"dynamic"`
	Invalid    bool   `json:"invalid"`
	Complete   bool   `json:"complete"`
}

type LogEntry struct {
	ID      string `json:"id"`
	Time    string `json:"time"`
	Topics  string `json:"topics"`
	Message string `json:"message"`
	Level   string `json:"level"`
}

type RouterUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Group     string `json:"group"`
	Disabled  bool   `json:"disabled"`
	LastLogin string `json:"lastLogin,omitempty"`
}

type DhcpLease struct {
	ID         string `json:"id"`
	Address    string `json:"address"`
	MacAddress string `json:"macAddress"`
	ClientID   string `json:"clientId"`
	Hostname   string `json:"hostname"`
	Expires    string `json:"expires"`
	Server     string `json:"server"`
	Dynamic    bool   `json:"dynamic"`
	Status     string `json:"status"`
}

type Address struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	Interface string `json:"interface"`
	Network   string `json:"network"`
	Disabled  bool   `json:"disabled"`
}

type Queue struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Target     string `json:"target"`
	MaxLimit   string `json:"maxLimit"`
	BurstLimit string `json:"burstLimit"`
	Disabled   bool   `json:"disabled"`
}

type TrafficStats struct {
	ConnectionID  string    `json:"connectionId"`
	InterfaceName string    `json:"interface"`
	RxBitsPerSec  uint64    `json:"rxBitsPerSecond"`
	TxBitsPerSec  uint64    `json:"txBitsPerSecond"`
	RxPacketsPerS uint64    `json:"rxPacketsPerSecond"`
	TxPacketsPerS uint64    `json:"txPacketsPerSecond"`
	Timestamp     time.Time `json:"timestamp"`
}

type CommandRequest struct {
	Command string `json:"command" binding:"required"`
}

type CommandResult struct {
	Command string              `json:"command"`
	Records []map[string]string `json:"records"`
}

// ApiResponse is the envelope of every REST reply. Data is never omitted so
// that an empty list reaches the client as [].
type ApiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
	Error   string `json:"error,omitempty"`
}
