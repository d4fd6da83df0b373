/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nabbar/connpool/connpool"
)

// AdminHandler returns a gin.Engine exposing the read-only half of the
// server introspection surface (pools, stats, threads, active/queued
// conns) over plain JSON, backed directly by sch.Snapshots(). Mutating
// commands (maxthreads v, minthreads v, map/unmap) have no runtime setter
// on connpool.Config to back them and so are not exposed here.
func AdminHandler(sch *connpool.Scheduler) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/pools", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"pools": sch.Snapshots()})
	})

	r.GET("/pools/:name/stats", func(c *gin.Context) {
		name := c.Param("name")

		for _, snap := range sch.Snapshots() {
			if snap.Name == name {
				c.JSON(http.StatusOK, snap)
				return
			}
		}

		c.JSON(http.StatusNotFound, gin.H{"error": "no pool registered under this name"})
	})

	r.GET("/pools/:name/threads", func(c *gin.Context) {
		name := c.Param("name")

		for _, snap := range sch.Snapshots() {
			if snap.Name == name {
				c.JSON(http.StatusOK, gin.H{
					"current": snap.Current,
					"idle":    snap.Idle,
					"min":     snap.Min,
					"max":     snap.Max,
				})
				return
			}
		}

		c.JSON(http.StatusNotFound, gin.H{"error": "no pool registered under this name"})
	})

	r.GET("/active", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"active": sch.Active()})
	})

	r.GET("/queued", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"queued": sch.Queued()})
	})

	r.GET("/all", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"active": sch.Active(),
			"queued": sch.Queued(),
		})
	})

	r.GET("/monitor", func(c *gin.Context) {
		c.JSON(http.StatusOK, sch.Monitor())
	})

	return r
}
