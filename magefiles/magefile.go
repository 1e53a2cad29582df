//go:build mage

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binary        = "bin/freight-reports"
	migrationsDir = "./internal/adapters/sqlite/migrations"
)

func dbPath() string {
	if p := os.Getenv("DB_PATH"); p != "" {
		return p
	}
	return "freight-reports.db"
}

// Dbup runs dbmate to apply db migrations. The server applies the same
// migrations itself unless AUTO_MIGRATE=false.
func Dbup() error {
	if _, err := exec.LookPath("dbmate"); err != nil {
		fmt.Println(">> dbmate not found; install with:")
		fmt.Println("   go install github.com/amacneil/dbmate/v2@latest")
		return err
	}
	fmt.Println(">> dbmate up")
	return sh.RunWith(map[string]string{
		"DATABASE_URL":          "sqlite:" + dbPath(),
		"DBMATE_MIGRATIONS_DIR": migrationsDir,
		"DBMATE_NO_DUMP_SCHEMA": "true",
	}, "dbmate", "up")
}

// Build tidies deps, then compiles to ./bin/freight-reports.
func Build() error {
	mg.Deps(Tidy)
	fmt.Println(">> Building server binary...")
	return sh.Run("go", "build", "-o", binary, "./cmd/server")
}

// Run builds then executes the binary.
func Run() error {
	mg.Deps(Build)
	fmt.Println(">> Starting server on :" + port() + " ...")
	return sh.Run("./" + binary)
}

// Dev starts the server via go run.
func Dev() error {
	fmt.Println(">> Dev mode: go run ./cmd/server ...")
	cmd := exec.Command("go", "run", "./cmd/server")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), "PORT="+port(), "LOG_LEVEL=debug")
	return cmd.Run()
}

// Sync starts the server with a short sync interval and stops on Ctrl-C.
// Useful to watch the scheduler against a local backend.
func Sync() error {
	server := exec.Command("go", "run", "./cmd/server")
	server.Stdout = os.Stdout
	server.Stderr = os.Stderr
	server.Env = append(os.Environ(), "PORT="+port(), "SYNC_INTERVAL=1m")
	if err := server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\n>> Shutting down...")
	return server.Process.Signal(syscall.SIGTERM)
}

func port() string {
	if p := os.Getenv("PORT"); p != "" {
		return p
	}
	return "8080"
}

// Tidy runs go mod tidy.
func Tidy() error {
	fmt.Println(">> go mod tidy...")
	return sh.Run("go", "mod", "tidy")
}

// Test runs all unit tests.
func Test() error {
	fmt.Println(">> Running tests...")
	return sh.Run("go", "test", "./...")
}

// Lint runs golangci-lint if available.
func Lint() error {
	if _, err := exec.LookPath("golangci-lint"); err != nil {
		fmt.Println(">> golangci-lint not found; skipping.")
		return nil
	}
	return sh.Run("golangci-lint", "run", "./...")
}

// Clean removes build artifacts and the local SQLite DB.
func Clean() error {
	fmt.Println(">> Cleaning...")
	if err := os.RemoveAll("bin"); err != nil {
		return err
	}
	if err := os.Remove(dbPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Install builds and installs the binary to $GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	return sh.Run("go", "install", "./cmd/server")
}

func init() {
	err := godotenv.Load()
	if err != nil {
		slog.Warn("error loading .env file", "err", err)
	}
}
