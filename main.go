package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mqy/minichat/relay"
	"github.com/mqy/minichat/store"
)

var (
	flagAddr         = flag.String("addr", "127.0.0.1:8000", "server address, ip:port")
	flagMysqlDsn     = flag.String("mysql-dsn", "", "mysql server dsn, e.g. root:@tcp(127.0.0.1:3306)/minichat?parseTime=true&charset=utf8mb4; empty keeps messages in memory")
	flagKafkaBrokers = flag.String("kafka-brokers", "", "comma separated kafka brokers to archive messages to; empty disables archiving")
	flagKafkaTopic   = flag.String("kafka-topic", relay.KafkaTopic, "kafka archive topic")
	flagTTLDays      = flag.Uint("ttl-days", 0, "delete messages older than this many days; 0 keeps all")

	flagDirectory  = flag.String("directory", "", "yaml file with superadmin, admins and tokens; overrides the flags below")
	flagSuperadmin = flag.String("superadmin", "root@x.com", "superadmin email")
	flagAdmins     = flag.String("admins", "", "comma separated admin emails")
	flagTokens     = flag.String("tokens", "", "comma separated token=email pairs; empty accepts any bearer token")

	flagDisableMetrics = flag.Bool("disable-metrics", false, "disable prometheus metrics")
)

func main() {
	flag.Parse()

	// NOTE: os.Exit() does not call defers.
	os.Exit(run())
}

func run() int {
	defer glog.Flush()

	if v := validateFlags(); v > 0 {
		return v
	}

	var dir *relay.Directory
	var err error
	if *flagDirectory != "" {
		dir, err = relay.LoadDirectory(*flagDirectory)
	} else {
		dir, err = relay.ParseDirectory(*flagSuperadmin, *flagAdmins, *flagTokens)
	}
	if err != nil {
		return errorf("directory: %v", err)
	}

	conf := relay.Conf{
		Directory: dir,
		TTLDays:   int32(*flagTTLDays),
	}

	if *flagMysqlDsn != "" {
		db, err := sql.Open("mysql", *flagMysqlDsn)
		if err != nil {
			return errorf("sql.Open error, dsn: %s, err: %v", *flagMysqlDsn, err)
		}
		defer db.Close()

		db.SetConnMaxLifetime(time.Minute * 3)
		db.SetMaxOpenConns(100)
		db.SetMaxIdleConns(1)

		ms := store.NewMysqlMessageStore(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = ms.EnsureSchema(ctx)
		cancel()
		if err != nil {
			return errorf("mysql: %v", err)
		}
		conf.Store = ms
	} else {
		glog.Infof("no --mysql-dsn, messages are kept in memory")
	}

	if *flagKafkaBrokers != "" {
		conf.Archive = relay.NewKafkaWriter(strings.Split(*flagKafkaBrokers, ","), *flagKafkaTopic)
	}

	hub := relay.NewHub(conf)

	router := hub.Router()
	if !*flagDisableMetrics {
		router.Handle("/metrics", promhttp.HandlerFor(
			prometheus.DefaultGatherer,
			promhttp.HandlerOpts{},
		))
	}

	lis, err := net.Listen("tcp", *flagAddr)
	if err != nil {
		return errorf("listen %s error: %v", *flagAddr, err)
	}
	httpServer := &http.Server{Handler: router}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()

	go func() {
		glog.Infof("http server is listening %v", *flagAddr)
		if err := httpServer.Serve(lis); errors.Is(err, http.ErrServerClosed) {
			glog.Infof("http server closed")
		} else if err != nil {
			glog.Errorf("http Serve error: %v", err)
			cancel()
		}
	}()

	glog.Infof("minichat relay is started, pid: %d; `CTRL+c` or `kill %d` to graceful stop", os.Getpid(), os.Getpid())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		glog.Infof("received signal `%s` stopping", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = httpServer.Shutdown(shutdownCtx)
	shutdownCancel()

	cancel()
	<-hubDone

	glog.Info("minichat relay exited")
	return 0
}

func validateFlags() int {
	if *flagAddr == "" {
		return errorf("--addr is required")
	}
	if err := validateAddr(*flagAddr); err != nil {
		return errorf("--addr: %v", err)
	}
	if *flagTTLDays > 0 && (*flagTTLDays < relay.MinTTLDays || *flagTTLDays > relay.MaxTTLDays) {
		return errorf("invalid --ttl-days, expect 0 or in range [%d, %d]", relay.MinTTLDays, relay.MaxTTLDays)
	}
	if *flagKafkaBrokers != "" && *flagKafkaTopic == "" {
		return errorf("--kafka-topic is required with --kafka-brokers")
	}
	if *flagDirectory != "" {
		if _, err := os.Stat(*flagDirectory); err != nil {
			return errorf("error stat directory file `%s`: %v", *flagDirectory, err)
		}
	} else if *flagSuperadmin == "" {
		return errorf("--superadmin or --directory is required")
	}
	return 0
}

// validateAddr only accepts loopback or private addresses: the relay is a development server.
func validateAddr(s string) error {
	host, _, err := net.SplitHostPort(s)
	if err != nil {
		return fmt.Errorf("error split host port from `%s`: %v", s, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("error parse IP from host `%s`", host)
	}
	if !ip.IsLoopback() && !ip.IsPrivate() {
		return fmt.Errorf("`%s` is not loopback or private address", host)
	}
	return nil
}

func errorf(fmt string, args ...interface{}) int {
	glog.Errorf(fmt, args...)
	return 1
}
