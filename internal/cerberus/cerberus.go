package cerberus

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Wikid82/ipguard/internal/config"
	"github.com/Wikid82/ipguard/internal/geoip"
	"github.com/Wikid82/ipguard/internal/logger"
	"github.com/Wikid82/ipguard/internal/metrics"
	"github.com/Wikid82/ipguard/internal/util"
)

// ClientIPKey is the gin context key holding the resolved client address.
const ClientIPKey = "clientIP"

// BlockedMessage is returned to clients rejected by the denylist.
const BlockedMessage = "Your IP has been blocked."

// GeoResolver resolves an address to a location and never fails.
type GeoResolver interface {
	Resolve(ctx context.Context, address string) geoip.Location
}

// RequestMeta is the part of an inbound request the pipeline inspects.
type RequestMeta struct {
	Header     http.Header
	RemoteAddr string
	Path       string
}

// Decision is the pipeline outcome for one request.
type Decision struct {
	Address string
	Blocked bool
}

// Deps are the collaborators of the pipeline. Geo may be nil to skip
// geolocation.
type Deps struct {
	Denylist DenylistChecker
	Audit    AuditWriter
	Geo      GeoResolver
	Log      *logrus.Entry
	Now      func() time.Time
}

// Cerberus runs the per-request pipeline: resolve the client address, consult
// the denylist, record allowed requests, then hand over to the protected
// handler. Failures in any supporting store are logged and never reach the
// protected handler or its caller.
type Cerberus struct {
	forwardHeader string
	gate          *Gate
	recorder      *Recorder
	geo           GeoResolver
	log           *logrus.Entry
}

// New creates a new Cerberus instance
func New(cfg config.SecurityConfig, deps Deps) *Cerberus {
	log := logger.OrDefault(deps.Log, "cerberus")
	return &Cerberus{
		forwardHeader: cfg.ForwardHeader,
		gate:          NewGate(deps.Denylist, log.WithField("stage", "gate")),
		recorder:      NewRecorder(deps.Audit, log.WithField("stage", "audit"), deps.Now),
		geo:           deps.Geo,
		log:           log,
	}
}

// Evaluate runs the pipeline up to, but not including, the protected handler.
// Blocked requests are not audited.
func (c *Cerberus) Evaluate(ctx context.Context, meta RequestMeta) Decision {
	metrics.IncRequest()
	address := ClientIP(meta.Header, c.forwardHeader, meta.RemoteAddr)

	if c.gate.Blocked(ctx, address) {
		metrics.IncBlocked()
		c.log.WithFields(logrus.Fields{
			"address":  address,
			"path":     util.SanitizeForLog(meta.Path),
			"decision": "block",
		}).Warn("Blocked request from denylisted address")
		return Decision{Address: address, Blocked: true}
	}

	// The audit trail outlives the request; a client hanging up must not
	// drop its entry.
	auditCtx := context.WithoutCancel(ctx)
	loc := c.locate(auditCtx, address)
	c.recorder.Record(auditCtx, address, meta.Path, loc.Country, loc.City)

	return Decision{Address: address}
}

func (c *Cerberus) locate(ctx context.Context, address string) (loc geoip.Location) {
	if c.geo == nil || address == "" {
		return geoip.Location{}
	}
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("address", address).WithError(fmt.Errorf("panic: %v", r)).Error("Geolocation failed")
			loc = geoip.Location{}
		}
	}()
	return c.geo.Resolve(ctx, address)
}

// Middleware returns a Gin middleware that enforces the denylist and audits
// allowed requests.
func (c *Cerberus) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		decision := c.Evaluate(ctx.Request.Context(), RequestMeta{
			Header:     ctx.Request.Header,
			RemoteAddr: ctx.Request.RemoteAddr,
			Path:       ctx.Request.URL.Path,
		})
		ctx.Set(ClientIPKey, decision.Address)
		if decision.Blocked {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": BlockedMessage})
			return
		}
		ctx.Next()
	}
}

// Handler wraps next for plain net/http front ends.
func (c *Cerberus) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := c.Evaluate(r.Context(), RequestMeta{
			Header:     r.Header,
			RemoteAddr: r.RemoteAddr,
			Path:       r.URL.Path,
		})
		if decision.Blocked {
			http.Error(w, BlockedMessage, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIPFromContext returns the address resolved by Middleware, falling
// back to resolving it from the request when the middleware did not run.
func (c *Cerberus) ClientIPFromContext(ctx *gin.Context) string {
	if v, ok := ctx.Get(ClientIPKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ClientIP(ctx.Request.Header, c.forwardHeader, ctx.Request.RemoteAddr)
}
