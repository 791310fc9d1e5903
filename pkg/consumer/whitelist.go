package consumer

import (
	"net"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Whitelist 源地址白名单，命中的地址不参与行为分析
type Whitelist struct {
	nets []*net.IPNet
	mu   sync.RWMutex
	log  *zap.SugaredLogger
}

func NewWhitelist(ips []string, log *zap.SugaredLogger) *Whitelist {
	w := &Whitelist{
		nets: make([]*net.IPNet, 0),
		log:  log,
	}
	if len(ips) > 0 {
		w.Update(ips)
	}
	return w
}

func (w *Whitelist) Update(ips []string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nets = make([]*net.IPNet, 0, len(ips))

	for _, ip := range ips {
		// 处理CIDR格式
		if !strings.Contains(ip, "/") {
			ip += "/32"
		}

		_, ipnet, err := net.ParseCIDR(ip)
		if err != nil {
			w.log.Errorf("无效的CIDR格式: %s, 错误: %v", ip, err)
			continue
		}
		w.nets = append(w.nets, ipnet)
	}

	w.log.Infof("白名单更新完成，共 %d 条记录", len(w.nets))
}

func (w *Whitelist) ContainsIP(ipStr string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if len(w.nets) == 0 {
		return false
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}

	for _, ipnet := range w.nets {
		if ipnet.Contains(ip) {
			return true
		}
	}

	return false
}
