package server

import (
	"fmt"
	"net"
	"os"

	"github.com/hashicorp/mdns"
)

// ServiceType 是局域网内广播的 mDNS 服务类型。
const ServiceType = "_memegen._tcp"

// serviceInfo 是广播的 TXT 记录。
var serviceInfo = []string{"memegen", "path=/api/generate-image"}

// Advertise 在局域网内广播 HTTP 服务，调用方负责 Shutdown。
func Advertise(port int) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("获取主机名失败: %w", err)
	}
	service, err := newService(host, "", port, nil)
	if err != nil {
		return nil, err
	}
	srv, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("启动 mDNS 服务失败: %w", err)
	}
	Logger().Info("mDNS 广播已启动", "service", ServiceType, "host", host, "port", port)
	return srv, nil
}

// newService 描述要广播的服务；hostName 与 ips 为空时由系统推断。
func newService(instance, hostName string, port int, ips []net.IP) (*mdns.MDNSService, error) {
	service, err := mdns.NewMDNSService(instance, ServiceType, "", hostName, port, ips, serviceInfo)
	if err != nil {
		return nil, fmt.Errorf("创建 mDNS 服务失败: %w", err)
	}
	return service, nil
}
