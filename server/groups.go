package server

import "github.com/gin-gonic/gin"

func NewGroup(routes ...*Route) *group {
	g := newGroup("")
	g.AddRoutes(routes...)
	return g
}

func newGroup(basePath string) *group {
	return &group{basePath: basePath}
}

type group struct {
	basePath string
	routes   []*Route
	subs     []*group
}

func (g *group) WithBasePath(p string) *group {
	g.basePath = p
	return g
}

func (g *group) AddRoutes(r ...*Route) *group {
	g.routes = append(g.routes, r...)
	return g
}

func (g *group) AddSubs(s ...*group) *group {
	g.subs = append(g.subs, s...)
	return g
}

func (g *group) HandleAllRoutes(engine *gin.Engine) {
	for _, rt := range g.routes {
		engine.Handle(rt.verb, g.basePath+rt.path, rt.handler)
	}
	for _, sub := range g.subs {
		sub.HandleAllRoutes(engine)
	}
}
