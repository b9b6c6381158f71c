package main

import (
	"context"
	"flag"
	"log"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/granary-project/granary/cmd/granaryd/handlers"
	kcx "github.com/granary-project/granary/pkg/configs/extras"
	kcs "github.com/granary-project/granary/pkg/configs/server"
	"github.com/granary-project/granary/pkg/domain"
	"github.com/granary-project/granary/pkg/domain/copyjob"
	"github.com/granary-project/granary/pkg/domain/granary"
	"github.com/granary-project/granary/pkg/domain/publishing/store"
	"github.com/granary-project/granary/pkg/domain/queue"
	"github.com/granary-project/granary/pkg/echoutil"
	"github.com/granary-project/granary/pkg/utils/filewatch"
	kstrings "github.com/granary-project/granary/pkg/utils/strings"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {

	configPath := flag.String("config-path", "", "server config path")
	extraConfigPath := flag.String("extra-apis-config", "", "path to extra api config file")
	schemaRepo := flag.String("schema-repo", "", "schema repository path")
	storeRoot := flag.String("store-root", "", "root directory of the upload content store")
	loglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	pcert := flag.String("cert", "", "certification file for TLS")
	pkey := flag.String("certkey", "", "key of certification file for TLS")
	flag.Parse()

	e := echo.New()
	e.Pre(middleware.AddTrailingSlash())

	// set log
	echoutil.SetLevel(e, *loglevel)
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}
	e.Use(echoutil.LogHandlerFunc)

	// read configfile
	conf, err := kcs.LoadServerConfig(*configPath)
	if err != nil {
		log.Fatalf("can not read configration: %s", err)
	}

	extraApis := kcx.Config{}
	if *extraConfigPath != "" {
		x, err := kcx.Load(*extraConfigPath)
		if err != nil {
			log.Fatalf("can not read configration: %s", err)
		}
		extraApis = x

		ctx, cancel, err := filewatch.UntilModifyContext(context.Background(), *extraConfigPath)
		if err != nil {
			log.Fatalf("can not watch configration: %s", err)
		}
		defer cancel()
		context.AfterFunc(ctx, func() {
			log.Println("extra API config file is updated. quit to restart server.")
			graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := e.Shutdown(graceful); err != nil {
				log.Printf("error on shutdown by extra API config update: %s", err)
			}
		})
	}

	api, err := root("/api")
	if err != nil {
		log.Fatalf("api root /api is invalid url or path: %s", err)
	}

	// get dbaccesor
	ctx := context.Background()
	db, err := granary.New(
		ctx, conf.DBURI, granary.WithSchemaRepository(*schemaRepo),
	)
	if err != nil {
		log.Fatalf("can not connect to database: %s", err.Error())
	}
	defer db.Close()

	queueAdmin := handlers.QueueAdminOnly([]byte(conf.QueueAdminSecret))
	queueService := queue.New(
		db.Queue().Database(),
		db.Registry().Database(),
		db.Publishing().Database(),
		store.NewDir(*storeRoot),
		queue.WithCopyRunner(copyjobRunner(db)),
	)

	// handlers
	{
		e.GET(api("queue"), handlers.FindQueueHandler(db.Queue().Database()))
		e.GET(api("queue/:uploadId/"), handlers.GetQueueHandler(db.Queue().Database()))
		e.POST(
			api("queue/:uploadId/accept"),
			handlers.AcceptQueueHandler(queueService, "uploadId", domain.PolicyConfig{}),
			queueAdmin,
		)
		e.POST(
			api("queue/:uploadId/reject"),
			handlers.RejectQueueHandler(queueService, "uploadId"),
			queueAdmin,
		)
	}

	{
		e.GET(api("publications"), handlers.GetSuiteHandler(db.Publishing().Database()))
	}

	{
		// register extra APIs
		for _, ex := range extraApis.Endpoints {
			log.Printf("register extra api: %s => %s", ex.Path, ex.ProxyTo)
			if ex.Path == "/api" || strings.HasPrefix(ex.Path, "/api/") {
				log.Fatalf("/api/... is reserved by Granary: %s", ex.Path)
			}
			if err := handlers.ExtraAPI(e, ex, echoutil.Proxy); err != nil {
				log.Fatalf("can not set extra api: %s", err)
			}
		}
	}

	log.Println("registred routes:")
	for _, r := range e.Routes() {
		log.Println(r.Method, r.Path)
	}

	cert, key := *pcert, *pkey
	if cert != "" && key != "" {
		e.Logger.Fatal(e.StartTLS(":"+conf.ServerPort, cert, key))
	} else {
		e.Logger.Fatal(e.Start(":" + conf.ServerPort))
	}
}

func copyjobRunner(db granary.Granary) *copyjob.Runner {
	return copyjob.New(
		db.CopyJob().Database(),
		db.Registry().Database(),
		db.Publishing().Database(),
		db.Queue().Database(),
	)
}

// create api URL factory
//
// args:
//   - root: api root
//
// return:
// - func: it receive relative path from root, and returns full-path of URL.
func root(r string) (func(...string) string, error) {
	//    when r is https://example.org:8080/api/root/path
	origin := "" // https://example.org:8080/ . "/" terminated. if r is path only, this is empty.
	base := ""   // /api/root/path
	{
		b, err := url.Parse(r)
		if err != nil {
			return nil, err
		}
		base = b.Path
		if b.Host != "" || b.Scheme != "" {
			_r := *b
			r := &_r
			r.RawPath = ""
			r.Path = ""
			r.RawQuery = ""
			r.Fragment = ""
			origin = r.String()
		}
	}
	origin = kstrings.SuppySuffix(origin, "/")

	return func(s ...string) string {
		parts := make([]string, len(s)+1)
		parts[0] = base
		copy(parts[1:], s)
		path := path.Join(parts...)
		path = kstrings.TrimPrefixAll(path, "/")

		return kstrings.SuppySuffix(origin+path, "/")
	}, nil
}
