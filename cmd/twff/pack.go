package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	flag "github.com/spf13/pflag"

	"twff/internal/config"
	"twff/internal/container"
	"twff/internal/schema"
	"twff/internal/session"
	"twff/internal/signer"
)

func cmdPack(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("pack", flag.ExitOnError)
	contentPath := fs.String("content", "", "final document (XHTML)")
	logPath := fs.String("log", "", "process-log.json for the session")
	chatPath := fs.String("chat", "", "optional chat transcript JSON")
	assetPaths := fs.StringArray("asset", nil, "asset file to embed (repeatable)")
	keyPath := fs.String("sign", cfg.Signing.KeyPath, "Ed25519 key to sign the chain head")
	strict := fs.Bool("strict", cfg.Validation.Strict, "strict meta validation")
	output := fs.StringP("output", "o", "document.twff", "output container path")
	fs.Parse(args)

	if *contentPath == "" || *logPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: twff pack --content doc.xhtml --log process-log.json [-o out.twff]")
		return 2
	}

	content, err := os.ReadFile(*contentPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	logData, err := os.ReadFile(*logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	sess, err := session.Decode(logData)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	archive := &container.Archive{Content: content, Session: sess}

	if *chatPath != "" {
		if archive.Chat, err = os.ReadFile(*chatPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 2
		}
	}
	for _, p := range *assetPaths {
		data, err := os.ReadFile(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 2
		}
		if archive.Assets == nil {
			archive.Assets = make(map[string][]byte)
		}
		archive.Assets[container.AssetsPrefix+path.Base(filepath.ToSlash(p))] = data
	}

	if *keyPath != "" {
		result, err := sess.Verify()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: refusing to sign a broken chain: %v\n", err)
			return 1
		}
		key, err := signer.LoadPrivateKey(*keyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 2
		}
		if archive.Signatures, err = signer.Sign(key, result.Tip, time.Now()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 2
		}
	}

	var schemaOpts []schema.Option
	if *strict {
		schemaOpts = append(schemaOpts, schema.Strict())
	}
	validator, err := schema.New(schemaOpts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	packed, err := container.Pack(archive, validator)
	if err != nil {
		if invalid, ok := err.(*container.InvalidSessionError); ok {
			fmt.Fprintf(os.Stderr, "Error: session failed validation:\n")
			for _, v := range invalid.Violations {
				fmt.Fprintf(os.Stderr, "  %s\n", v)
			}
			return 1
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	if err := os.WriteFile(*output, packed, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	fmt.Printf("Packed %s (%d bytes, digest %.16s…)\n",
		*output, len(packed), container.Digest(packed))
	return 0
}

func cmdInspect(args []string) int {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: twff inspect <file.twff>")
		return 2
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	archive, err := container.Unpack(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	fmt.Printf("Container digest: %s\n", container.Digest(data))
	fmt.Printf("Session:          %s (format %s)\n",
		archive.Session.SessionID, archive.Session.Version)
	fmt.Printf("Events:           %d\n", len(archive.Session.Events))
	fmt.Printf("Content:          %d bytes\n", len(archive.Content))
	if archive.Chat != nil {
		fmt.Printf("Chat transcript:  %d bytes\n", len(archive.Chat))
	}
	if archive.Signatures != nil {
		fmt.Printf("Signatures:       present\n")
	}
	for _, name := range sortedKeys(archive.Assets) {
		fmt.Printf("Asset:            %s (%d bytes)\n", name, len(archive.Assets[name]))
	}
	return 0
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
