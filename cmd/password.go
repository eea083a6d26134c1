package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/illarion/passvault/internal/crypto"
)

const (
	PasswordEnv       = "PASSVAULT_PASSWORD"
	MinMasterPassword = 6
)

// GetPasswordFromEnv reads the master password from PASSVAULT_PASSWORD
func GetPasswordFromEnv() []byte {
	password := os.Getenv(PasswordEnv)
	if password == "" {
		return nil
	}
	// Return a copy so the caller may clear it
	result := make([]byte, len(password))
	copy(result, password)
	return result
}

// terminalFd returns the descriptor of r if it is an interactive terminal
func terminalFd(r io.Reader) (int, bool) {
	f, ok := r.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

// readPassword reads a secret without echo. Piped input is read as a line.
func (c *cli) readPassword(cmd *cobra.Command, prompt string) ([]byte, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)

	if fd, ok := terminalFd(c.in); ok {
		password, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		return password, nil
	}

	line, err := c.readRawLine()
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return []byte(line), nil
}

// readPasswordConfirm reads a new master password twice and enforces the
// minimum length
func (c *cli) readPasswordConfirm(cmd *cobra.Command) ([]byte, error) {
	password1, err := c.readPassword(cmd, "New master password: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password1)

	if len([]rune(string(password1))) < MinMasterPassword {
		return nil, fmt.Errorf("master password must be at least %d characters", MinMasterPassword)
	}

	password2, err := c.readPassword(cmd, "Confirm master password: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password2)

	if !crypto.ConstantTimeCompare(password1, password2) {
		return nil, errors.New("passwords do not match")
	}

	// Return a copy of the password
	result := make([]byte, len(password1))
	copy(result, password1)
	return result, nil
}

// readLine prints prompt and returns one trimmed line of input
func (c *cli) readLine(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := c.readRawLine()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *cli) readRawLine() (string, error) {
	if c.reader == nil {
		c.reader = bufio.NewReader(c.in)
	}
	line, err := c.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", errors.New("no input")
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
