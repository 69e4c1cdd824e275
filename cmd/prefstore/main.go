package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/shivammaggu/prefstore/pkg/sdk"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	addr := os.Getenv("PREFSTORE_ADDR")
	if addr == "" {
		addr = "localhost:7001"
	}

	client, err := sdk.Connect(addr)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", addr, err)
	}
	defer client.Close()

	command := strings.ToUpper(os.Args[1])
	args := os.Args[2:]

	switch command {
	case "GET":
		if len(args) < 2 {
			log.Fatal("Usage: prefstore GET <namespace> <key>")
		}
		val, err := client.Get(args[0], args[1])
		if err != nil {
			log.Fatal(err)
		}
		printJSON(val)

	case "SET":
		if len(args) < 3 {
			log.Fatal("Usage: prefstore SET <namespace> <key> <value>")
		}
		var val any
		if err := json.Unmarshal([]byte(args[2]), &val); err != nil {
			// If not valid JSON, treat as string
			val = args[2]
		}
		err := client.Set(args[0], args[1], val)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("OK")

	case "DEL":
		if len(args) < 2 {
			log.Fatal("Usage: prefstore DEL <namespace> <key>")
		}
		err := client.Remove(args[0], args[1])
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("OK")

	case "KEYS":
		if len(args) < 1 {
			log.Fatal("Usage: prefstore KEYS <namespace>")
		}
		list, err := client.Keys(args[0])
		if err != nil {
			log.Fatal(err)
		}
		printJSON(list)

	case "NAMESPACES":
		list, err := client.Namespaces()
		if err != nil {
			log.Fatal(err)
		}
		printJSON(list)

	case "DUMP":
		if len(args) < 1 {
			log.Fatal("Usage: prefstore DUMP <namespace>")
		}
		data, err := client.Dump(args[0])
		if err != nil {
			log.Fatal(err)
		}
		printJSON(data)

	case "RESET":
		if len(args) < 1 {
			log.Fatal("Usage: prefstore RESET <namespace>")
		}
		err := client.Wipe(args[0])
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("OK")

	case "MOVE":
		if len(args) < 3 {
			log.Fatal("Usage: prefstore MOVE <src-namespace> <dst-namespace> <key>")
		}
		err := client.Move(args[0], args[1], args[2])
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("OK")

	case "PING":
		if err := client.Ping(); err != nil {
			log.Fatal(err)
		}
		fmt.Println("PONG")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func printUsage() {
	fmt.Println("Prefstore CLI - Interface for the prefstore daemon")
	fmt.Println("\nUsage:")
	fmt.Println("  prefstore GET <namespace> <key>")
	fmt.Println("  prefstore SET <namespace> <key> <value>")
	fmt.Println("  prefstore DEL <namespace> <key>")
	fmt.Println("  prefstore KEYS <namespace>")
	fmt.Println("  prefstore NAMESPACES")
	fmt.Println("  prefstore DUMP <namespace>")
	fmt.Println("  prefstore RESET <namespace>")
	fmt.Println("  prefstore MOVE <src-namespace> <dst-namespace> <key>")
	fmt.Println("  prefstore PING")
	fmt.Println("\nEnvironment Variables:")
	fmt.Println("  PREFSTORE_ADDR         Address of the daemon (default: localhost:7001)")
	fmt.Println("  PREFSTORE_DISABLE_TLS  Set to true to disable TLS")
}

func printJSON(v any) {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(bytes))
}
