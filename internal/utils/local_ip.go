package utils

import "net"

// GetLocalIP 返回本机对外 IP（用于 Kafka client.id 等标识场景）。
// 通过 UDP 拨号探测路由出口，不产生真实流量；失败时退回 "unknown"。
func GetLocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "unknown"
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "unknown"
	}
	return addr.IP.String()
}
