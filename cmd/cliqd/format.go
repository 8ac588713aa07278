package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"cliqd/internal/catalog"
	"cliqd/internal/models"
)

// timeAgo renders a createdAt timestamp the way the feed shows it.
func timeAgo(createdAt int64, now time.Time) string {
	m := now.Sub(time.UnixMilli(createdAt)) / time.Minute
	switch {
	case m < 1:
		return "just now"
	case m < 60:
		return fmt.Sprintf("%dm ago", m)
	}
	h := m / 60
	if h < 24 {
		return fmt.Sprintf("%dh ago", h)
	}
	return fmt.Sprintf("%dd ago", h/24)
}

func printPost(w io.Writer, p *models.Post, viewerID string, now time.Time) {
	liked := " "
	if viewerID != "" && p.LikedBy(viewerID) {
		liked = "♥"
	}
	fmt.Fprintf(w, "%s  @%s · %s · %s %d likes\n", p.ID, p.Username, timeAgo(p.CreatedAt, now), liked, p.LikeCount())
	if p.Caption != "" {
		fmt.Fprintf(w, "    %s\n", p.Caption)
	}
	if p.MediaType == models.MediaVideo {
		fmt.Fprintf(w, "    [video] %s\n", truncate(p.MediaURL, 60))
	} else {
		fmt.Fprintf(w, "    [image] %s\n", truncate(p.MediaURL, 60))
	}
	for _, t := range p.Tags {
		fmt.Fprintf(w, "    tag %s: %s", t.ID, t.ProductName)
		if t.Price != "" {
			fmt.Fprintf(w, " %s", t.Price)
		}
		fmt.Fprintf(w, " at (%.1f%%, %.1f%%)\n", t.X, t.Y)
	}
}

func printPosts(w io.Writer, posts []models.Post, viewerID string, now time.Time) {
	if len(posts) == 0 {
		fmt.Fprintln(w, "No posts yet")
		return
	}
	for i := range posts {
		printPost(w, &posts[i], viewerID, now)
	}
}

func printUsers(w io.Writer, users []models.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users")
		return
	}
	for _, u := range users {
		fmt.Fprintf(w, "@%-20s %s\n", u.Username, u.Name)
	}
}

func printSession(w io.Writer, s *models.Session) {
	fmt.Fprintf(w, "@%s (%s)\n", s.Username, s.Name)
	fmt.Fprintf(w, "  id:     %s\n", s.ID)
	fmt.Fprintf(w, "  email:  %s\n", s.Email)
	if s.Bio != "" {
		fmt.Fprintf(w, "  bio:    %s\n", s.Bio)
	}
	fmt.Fprintf(w, "  avatar: %s\n", truncate(s.Avatar, 60))
}

func printProducts(w io.Writer, products []catalog.Product) {
	if len(products) == 0 {
		fmt.Fprintln(w, "No products found")
		return
	}
	for _, p := range products {
		fmt.Fprintf(w, "%-4s %-24s %-8s %s\n", p.ID, p.Name, p.Price, p.Category)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
