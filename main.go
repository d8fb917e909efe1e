// Package main provides the sector agent CLI. It classifies MIFARE Classic
// sector dumps posted by phones, read from a local reader, or loaded from
// JSON files, and reports what each sector holds.
//
// Usage:
//
//	davi-sector-agent decode dump.json
//	davi-sector-agent read --format markdown
//	davi-sector-agent serve --port 18080
package main

func main() {
	Execute()
}
