// Package hcl provides the concrete HCL implementation for the configuration
// loading and data conversion interfaces defined in the `config` package.
// It is responsible for binding-file parsing, HCL-to-model translation, and
// decoding stage arguments into runner input structs.
//
// A binding file looks like this:
//
//	pipeline "claims" {
//	  diagram = "pipeline.dot"
//	  workers = 4
//	  vars = { period = "2024-03" }
//	}
//
//	stage "S6" {
//	  runner = "csv_read"
//	  arguments {
//	    path = "data/claims.csv"
//	  }
//	}
package hcl
