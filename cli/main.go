/*-------------------------------------------------------------------------
 *
 * main.go
 *    CLI entry point for NeuronSupervisor
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/cli/main.go
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"github.com/neurondb/NeuronSupervisor/cli/cmd"
)

func main() {
	cmd.Execute()
}
