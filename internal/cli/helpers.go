package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/injectly/injectly/internal/client"
	"github.com/injectly/injectly/internal/config"
)

const defaultServerURL = "http://127.0.0.1:9700"

// cliRuntime bundles the loaded config file with its path so commands that
// mutate it (login, logout) can write it back.
type cliRuntime struct {
	ConfigPath string
	Config     config.Config
	Server     string
}

func runtimeFromCommand(cmd *cobra.Command) (cliRuntime, error) {
	path, err := config.DefaultPath()
	if err != nil {
		return cliRuntime{}, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cliRuntime{}, err
	}

	server, err := cmd.Flags().GetString("server")
	if err != nil {
		return cliRuntime{}, err
	}
	server = strings.TrimSpace(server)
	if server == "" {
		server = cfg.Server
	}
	if server == "" {
		server = defaultServerURL
	}

	return cliRuntime{ConfigPath: path, Config: cfg, Server: server}, nil
}

func runtimeAndClientFromCommand(cmd *cobra.Command) (cliRuntime, *client.APIClient, error) {
	rt, err := runtimeFromCommand(cmd)
	if err != nil {
		return cliRuntime{}, nil, err
	}
	return rt, client.New(rt.Server, rt.Config.Token), nil
}

func parseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, raw)
	}
	return id, nil
}

// promptPassword reads a password without echo when stdin is a terminal, and
// falls back to a plain line read for piped input.
func promptPassword(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ", label)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readContent resolves script content from --content or --file.
func readContent(inline, file string) (string, error) {
	switch {
	case inline != "" && file != "":
		return "", fmt.Errorf("use either --content or --file, not both")
	case inline != "":
		return inline, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read script file: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("script content required (--content or --file)")
	}
}
