package main

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matthieu-boussard/craft-ai-client-python/tree"
	treejson "github.com/matthieu-boussard/craft-ai-client-python/tree/json"
	"github.com/matthieu-boussard/craft-ai-client-python/tree/mongostore"
	"github.com/matthieu-boussard/craft-ai-client-python/tree/redisstore"
	"github.com/matthieu-boussard/craft-ai-client-python/tree/sqlstore"
	"github.com/spf13/cobra"
	mgo "gopkg.in/mgo.v2"
	redis "gopkg.in/redis.v5"
)

const defaultStoreName = "trees"

type storeOptions struct {
	// Name is the redis key prefix, SQL table or mongo collection.
	Name string
	// TTL of the trees on redis, zero to keep them.
	TTL time.Duration
}

/*
openStore takes a store URL and returns the tree.Store it describes:
  - redis://[:password@]host:port[/db] for a redis store
  - mongodb://... for a MongoDB store on the default database of the URL
  - postgres://..., postgresql://... for a PostgreSQL store
  - sqlite3://path, or any other path, for an SQLite3 store
*/
func openStore(ctx context.Context, storeURL string, opts storeOptions) (tree.Store, error) {
	if opts.Name == "" {
		opts.Name = defaultStoreName
	}
	encdec := treejson.NewEncodeDecoder()
	switch {
	case strings.HasPrefix(storeURL, "redis://"):
		ropts, err := redisOptions(storeURL)
		if err != nil {
			return nil, err
		}
		return redisstore.New(redis.NewClient(ropts), opts.Name, opts.TTL, encdec), nil
	case strings.HasPrefix(storeURL, "mongodb://"):
		session, err := mgo.Dial(storeURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to mongo: %v", err)
		}
		s, err := mongostore.Open(ctx, session, opts.Name, encdec)
		if err != nil {
			session.Close()
			return nil, err
		}
		return s, nil
	default:
		return sqlstore.Open(ctx, storeURL, opts.Name, encdec)
	}
}

func redisOptions(storeURL string) (*redis.Options, error) {
	u, err := url.Parse(storeURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %v", err)
	}
	opts := &redis.Options{Addr: u.Host}
	if u.Port() == "" {
		opts.Addr = u.Host + ":6379"
	}
	if u.User != nil {
		opts.Password, _ = u.User.Password()
	}
	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		if opts.DB, err = strconv.Atoi(db); err != nil {
			return nil, fmt.Errorf("invalid redis database %q: %v", db, err)
		}
	}
	return opts, nil
}

type storeCmdConfig struct {
	*rootCmdConfig
	StoreURL string `validate:"required"`
	Name     string `validate:"required"`
	TTL      time.Duration
}

func storeCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &storeCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage stored decision trees",
		Long:  `Put decision trees on a store, and get or delete them from it`,
	}
	cmd.PersistentFlags().StringVarP(&(config.StoreURL), "url", "u", "", "URL of the store: redis://, mongodb://, postgres:// or sqlite3:// (required)")
	cmd.PersistentFlags().StringVarP(&(config.Name), "name", "n", defaultStoreName, "redis key prefix, SQL table or mongo collection holding the trees")
	cmd.PersistentFlags().DurationVar(&(config.TTL), "ttl", 0, "time to live of trees put on redis, zero to keep them")
	cmd.AddCommand(storePutCmd(config), storeGetCmd(config), storeDeleteCmd(config))
	return cmd
}

func (scc *storeCmdConfig) withStore(cmd *cobra.Command, f func(context.Context, tree.Store) error) error {
	if err := validateFlags(scc); err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openStore(ctx, scc.StoreURL, storeOptions{Name: scc.Name, TTL: scc.TTL})
	if err != nil {
		return exit(2, err)
	}
	defer s.Close(ctx)
	return f(ctx, s)
}

func storePutCmd(config *storeCmdConfig) *cobra.Command {
	var treeInput string
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Put a tree on the store and print its id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if treeInput == "" {
				return exit(1, fmt.Errorf("required tree flag was not set"))
			}
			t, err := config.loadTree(treeInput)
			if err != nil {
				return exit(3, err)
			}
			return config.withStore(cmd, func(ctx context.Context, s tree.Store) error {
				if err := s.Create(ctx, t); err != nil {
					return exit(4, err)
				}
				config.logger.Debug("tree stored", "id", t.ID)
				fmt.Fprintln(cmd.OutOrStdout(), t.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&treeInput, "tree", "t", "", "path to a file from which the tree will be read and parsed as JSON (required)")
	return cmd
}

func storeGetCmd(config *storeCmdConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Print the tree with the given id as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.withStore(cmd, func(ctx context.Context, s tree.Store) error {
				t, err := s.Get(ctx, args[0])
				if err != nil {
					return exit(4, fmt.Errorf("retrieving tree %s: %w", args[0], err))
				}
				if err := treejson.WriteTree(cmd.OutOrStdout(), t); err != nil {
					return exit(5, err)
				}
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}
}

func storeDeleteCmd(config *storeCmdConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete the tree with the given id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.withStore(cmd, func(ctx context.Context, s tree.Store) error {
				if err := s.Delete(ctx, args[0]); err != nil {
					return exit(4, err)
				}
				return nil
			})
		},
	}
}
