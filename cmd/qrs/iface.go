// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net"

	"github.com/jackpal/gateway"

	"upspin.io/errors"
	"upspin.io/log"
)

// bindHost returns host if it is set, warning if it is a loopback address
// that other devices cannot reach. Otherwise it selects the address of a
// network interface, asking the user if there is more than one.
func bindHost(con *console, host string) (string, error) {
	if host != "" {
		if isLoopback(host) {
			fmt.Fprintf(con.out, "Warning: %s is a loopback address; other devices cannot reach it.\n", host)
		}
		return host, nil
	}
	nets, err := candidateNets()
	if err != nil {
		return "", err
	}
	def := -1
	if gw, err := gateway.DiscoverGateway(); err != nil {
		log.Debug.Printf("discover gateway: %v", err)
	} else {
		def = gatewayIndex(nets, gw)
	}
	ip, err := selectIP(con, nets, def)
	if err != nil {
		return "", err
	}
	return ip.String(), nil
}

// candidateNets returns the IPv4 networks of the interfaces that are up,
// excluding loopback addresses.
func candidateNets() ([]*net.IPNet, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, errors.E(errors.Op("interfaces"), errors.IO, err)
	}
	var nets []*net.IPNet
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			log.Debug.Printf("addresses of %s: %v", iface.Name, err)
			continue
		}
		nets = append(nets, ipv4Nets(addrs)...)
	}
	return nets, nil
}

// ipv4Nets returns the non-loopback IPv4 networks among addrs.
func ipv4Nets(addrs []net.Addr) []*net.IPNet {
	var nets []*net.IPNet
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipnet.IP.To4()
		if ip == nil || ip.IsLoopback() {
			continue
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: ipnet.Mask})
	}
	return nets
}

// gatewayIndex returns the index of the network containing gw, or -1.
func gatewayIndex(nets []*net.IPNet, gw net.IP) int {
	for i, n := range nets {
		if n.Contains(gw) {
			return i
		}
	}
	return -1
}

// selectIP picks the address to bind from nets. With more than one
// candidate the user is asked; def is the suggested index.
func selectIP(con *console, nets []*net.IPNet, def int) (net.IP, error) {
	switch len(nets) {
	case 0:
		return nil, errors.E(errors.NotExist, errors.Str("no suitable interface to bind on"))
	case 1:
		return nets[0].IP, nil
	}
	items := make([]string, len(nets))
	for i, n := range nets {
		items[i] = n.IP.String()
	}
	i, err := con.choose("Which interface do you prefer?", items, def)
	if err != nil {
		return nil, err
	}
	return nets[i].IP, nil
}

// isLoopback reports whether host names only loopback addresses.
func isLoopback(host string) bool {
	ips, err := net.LookupIP(host)
	if err != nil || len(ips) == 0 {
		return false
	}
	for _, ip := range ips {
		if !ip.IsLoopback() {
			return false
		}
	}
	return true
}
