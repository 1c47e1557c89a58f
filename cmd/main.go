/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package main

import (
	"fmt"

	"github.com/ufcg-lsd/asperathos-manager/pkg/server"
)

func main() {
	s, err := server.NewServer()
	if err != nil {
		fmt.Println("failed to new server")
		return
	}
	s.Start()
}
