// Command observectl administers the credential store: the address allow
// list, user permissions and schema migrations.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"observe/internal/domain"
	"observe/internal/gateway/adapter/postgres"
	"observe/internal/gateway/adapter/rediscache"
)

const usage = `usage: observectl [flags] <command>

commands:
  allow list
  allow add <pattern>        pattern uses SQL LIKE syntax, e.g. 147.231.%
  allow remove <pattern>
  users list
  users permission <login> <admin|control|user|none>
  migrate

flags:
`

var errUsage = errors.New("invalid usage")

// adminStore is the part of the credential store observectl manages.
type adminStore interface {
	ListAddresses(ctx context.Context) ([]domain.AddressAllowEntry, error)
	AddAddress(ctx context.Context, pattern string) error
	RemoveAddress(ctx context.Context, pattern string) error
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, login string) (domain.User, error)
	UpdateUser(ctx context.Context, u domain.User) error
}

func main() {
	flags := pflag.NewFlagSet("observectl", pflag.ContinueOnError)
	dsn := flags.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	redisAddr := flags.String("redis-addr", os.Getenv("REDIS_ADDR"), "allow-list cache to invalidate after changes")
	verbose := flags.BoolP("verbose", "v", false, "log debug output")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		os.Exit(2)
	}
	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "observectl: --database-url or DATABASE_URL is required")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, *dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "observectl: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if args[0] == "migrate" {
		err = postgres.Migrate(ctx, pool)
		if err == nil {
			fmt.Println("migrations applied")
		}
	} else {
		err = execute(ctx, postgres.NewStore(pool), args, os.Stdout)
		if err == nil && args[0] == "allow" && args[1] != "list" && *redisAddr != "" {
			err = invalidateCache(ctx, *redisAddr)
		}
	}

	if errors.Is(err, errUsage) {
		fmt.Fprintf(os.Stderr, "observectl: %v\n\n", err)
		flags.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "observectl: %v\n", err)
		os.Exit(1)
	}
}

// execute runs one store command and writes its output to out.
func execute(ctx context.Context, store adminStore, args []string, out io.Writer) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: missing subcommand", errUsage)
	}
	switch cmd := args[0] + " " + args[1]; cmd {
	case "allow list":
		entries, err := store.ListAddresses(ctx)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintln(out, e.Pattern)
		}
		return nil

	case "allow add", "allow remove":
		if len(args) != 3 || args[2] == "" {
			return fmt.Errorf("%w: %s takes one pattern", errUsage, cmd)
		}
		if args[1] == "add" {
			if err := store.AddAddress(ctx, args[2]); err != nil {
				return err
			}
			fmt.Fprintf(out, "added %s\n", args[2])
			return nil
		}
		if err := store.RemoveAddress(ctx, args[2]); err != nil {
			return err
		}
		fmt.Fprintf(out, "removed %s\n", args[2])
		return nil

	case "users list":
		users, err := store.ListUsers(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "LOGIN\tPERMISSION\tNAME\tEMAIL")
		for _, u := range users {
			fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\n", u.Login, u.Permission, u.FirstName, u.LastName, u.Email)
		}
		return tw.Flush()

	case "users permission":
		if len(args) != 4 {
			return fmt.Errorf("%w: users permission takes a login and a permission", errUsage)
		}
		login, permission := args[2], args[3]
		if string(domain.RoleFromPermission(permission)) != permission {
			return fmt.Errorf("%w: unknown permission %q", errUsage, permission)
		}
		u, err := store.GetUser(ctx, login)
		if err != nil {
			return fmt.Errorf("user %q: %w", login, err)
		}
		u.Permission = permission
		if err := store.UpdateUser(ctx, u); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s is now %s\n", login, permission)
		return nil

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func invalidateCache(ctx context.Context, addr string) error {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	if err := rediscache.NewAllowList(nil, rdb, 0, slog.Default()).Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidating allow-list cache: %w", err)
	}
	return nil
}
