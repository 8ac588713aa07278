package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"cliqd/internal/bootstrap"
	"cliqd/internal/models"
	"cliqd/internal/service"
	"cliqd/internal/tagging"
	"cliqd/internal/validation"
)

type command struct {
	usage string
	run   func(ctx context.Context, args []string) error
}

type cli struct {
	app *bootstrap.App
	out io.Writer
	now func() time.Time
}

func (c *cli) commands() map[string]command {
	return map[string]command{
		"register":  {"register -name N -email E -username U -password P", c.register},
		"login":     {"login -email E -password P", c.login},
		"logout":    {"logout", c.logout},
		"whoami":    {"whoami", c.whoami},
		"profile":   {"profile [-name N] [-bio B] [-avatar URL] [-cover URL]", c.profile},
		"refresh":   {"refresh", c.refresh},
		"user":      {"user <username>", c.user},
		"post":      {"post -caption C (-media URL | -file PATH) [-type image|video] [-product ID@X,Y] [-tag X,Y=NAME[;PRICE[;LINK]]]", c.post},
		"like":      {"like <post-id>", c.like},
		"delete":    {"delete <post-id>", c.deletePost},
		"feed":      {"feed [-limit N]", c.feed},
		"posts":     {"posts <username>", c.posts},
		"follow":    {"follow <username>", c.follow},
		"unfollow":  {"unfollow <username>", c.unfollow},
		"followers": {"followers <username>", c.followers},
		"following": {"following <username>", c.following},
		"search":    {"search <query>", c.search},
		"related":   {"related <post-id> <tag-id>", c.related},
		"catalog":   {"catalog [query]", c.catalog},
		"place":     {"place -x X -y Y -width W -height H [-left L] [-top T]", c.place},
		"stats":     {"stats", c.stats},
	}
}

func (c *cli) usage() {
	cmds := c.commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(c.out, "Usage: cliqd <command> [flags]")
	fmt.Fprintln(c.out)
	for _, name := range names {
		fmt.Fprintf(c.out, "  cliqd %s\n", cmds[name].usage)
	}
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.usage()
		return errors.New("missing command")
	}
	cmd, ok := c.commands()[args[0]]
	if !ok {
		c.usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
	return cmd.run(ctx, args[1:])
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.out)
	return fs
}

// actor returns the signed-in user's id.
func (c *cli) actor() (string, error) {
	s, err := c.app.Session.Require()
	if err != nil {
		return "", err
	}
	return s.ID, nil
}

func (c *cli) viewer() string {
	if s, _ := c.app.Session.Current(); s != nil {
		return s.ID
	}
	return ""
}

func (c *cli) resolveUser(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	u, err := c.app.Identity.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	return u, nil
}

func oneArg(args []string, what string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", models.NewValidationError(fmt.Sprintf("expected exactly one %s", what))
	}
	return args[0], nil
}

func (c *cli) register(ctx context.Context, args []string) error {
	fs := c.flags("register")
	var form validation.Registration
	fs.StringVar(&form.Name, "name", "", "display name")
	fs.StringVar(&form.Email, "email", "", "email address")
	fs.StringVar(&form.Username, "username", "", "username")
	fs.StringVar(&form.Password, "password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	form = form.Normalize()
	if err := form.Validate(); err != nil {
		return models.NewValidationError(err.Error())
	}
	session, err := c.app.Identity.Register(ctx, form.Name, form.Email, form.Password, form.Username)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Welcome to cliqd, @%s!\n", session.Username)
	return nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := c.flags("login")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	session, err := c.app.Identity.Authenticate(ctx, strings.TrimSpace(*email), *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Signed in as @%s\n", session.Username)
	return nil
}

func (c *cli) logout(ctx context.Context, _ []string) error {
	if err := c.app.Identity.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Signed out")
	return nil
}

func (c *cli) whoami(_ context.Context, _ []string) error {
	s, err := c.app.Session.Require()
	if err != nil {
		return err
	}
	printSession(c.out, s)
	return nil
}

func (c *cli) profile(ctx context.Context, args []string) error {
	fs := c.flags("profile")
	name := fs.String("name", "", "display name")
	bio := fs.String("bio", "", "bio")
	avatar := fs.String("avatar", "", "avatar URL")
	cover := fs.String("cover", "", "cover photo URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	actorID, err := c.actor()
	if err != nil {
		return err
	}

	var patch models.ProfilePatch
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			patch.Name = name
		case "bio":
			patch.Bio = bio
		case "avatar":
			patch.Avatar = avatar
		case "cover":
			patch.CoverPhoto = cover
		}
	})
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return models.NewValidationError("name is required")
	}
	session, err := c.app.Identity.UpdateProfile(ctx, actorID, patch)
	if err != nil {
		return err
	}
	printSession(c.out, session)
	return nil
}

func (c *cli) refresh(ctx context.Context, _ []string) error {
	session, err := c.app.Identity.Refresh(ctx)
	if err != nil {
		return err
	}
	printSession(c.out, session)
	return nil
}

func (c *cli) user(ctx context.Context, args []string) error {
	username, err := oneArg(args, "username")
	if err != nil {
		return err
	}
	u, err := c.resolveUser(ctx, username)
	if err != nil {
		return err
	}
	posts, err := c.app.Content.GetPostsByUser(ctx, u.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "@%s (%s)\n", u.Username, u.Name)
	if u.Bio != "" {
		fmt.Fprintf(c.out, "  %s\n", u.Bio)
	}
	fmt.Fprintf(c.out, "  %s · %s · %d following\n",
		plural(len(posts), "post", "posts"), plural(len(u.Followers), "follower", "followers"), len(u.Following))
	if viewer := c.viewer(); viewer != "" && viewer != u.ID {
		following, err := c.app.Social.IsFollowing(ctx, viewer, u.ID)
		if err != nil {
			return err
		}
		if following {
			fmt.Fprintln(c.out, "  You follow this account")
		}
	}
	fmt.Fprintln(c.out)
	printPosts(c.out, posts, c.viewer(), c.now())
	return nil
}

// tagList collects repeated -tag or -product values.
type tagList []string

func (t *tagList) String() string     { return strings.Join(*t, " ") }
func (t *tagList) Set(v string) error { *t = append(*t, v); return nil }

func parsePoint(s string) (tagging.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return tagging.Point{}, models.NewValidationError(fmt.Sprintf("point %q must be X,Y", s))
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return tagging.Point{}, models.NewValidationError(fmt.Sprintf("invalid x in %q", s))
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return tagging.Point{}, models.NewValidationError(fmt.Sprintf("invalid y in %q", s))
	}
	return tagging.Point{X: tagging.Round1(x), Y: tagging.Round1(y)}, nil
}

// readMedia turns a local file into a data URI and infers its kind.
func readMedia(path string) (string, models.MediaKind, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read media: %w", err)
	}
	mime := http.DetectContentType(data)
	kind := models.MediaImage
	if strings.HasPrefix(mime, "video/") {
		kind = models.MediaVideo
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), kind, nil
}

func (c *cli) post(ctx context.Context, args []string) error {
	fs := c.flags("post")
	caption := fs.String("caption", "", "caption")
	media := fs.String("media", "", "media URL")
	file := fs.String("file", "", "local media file")
	kind := fs.String("type", "", "image or video")
	var products, custom tagList
	fs.Var(&products, "product", "catalog product as ID@X,Y (repeatable)")
	fs.Var(&custom, "tag", "custom product as X,Y=NAME[;PRICE[;LINK]] (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	actorID, err := c.actor()
	if err != nil {
		return err
	}

	mediaURL, mediaKind := *media, models.MediaKind(*kind)
	if *file != "" {
		var detected models.MediaKind
		if mediaURL, detected, err = readMedia(*file); err != nil {
			return err
		}
		if mediaKind == "" {
			mediaKind = detected
		}
	}
	if mediaKind == "" {
		mediaKind = models.MediaImage
	}
	if err := validation.ValidatePost(*caption, mediaURL); err != nil {
		return models.NewValidationError(err.Error())
	}

	draft := tagging.NewDraft(mediaKind)
	for _, spec := range products {
		id, at, ok := strings.Cut(spec, "@")
		if !ok {
			return models.NewValidationError(fmt.Sprintf("product %q must be ID@X,Y", spec))
		}
		product, found := c.app.Catalog.Get(strings.TrimSpace(id))
		if !found {
			return models.NewNotFoundError("Product", id)
		}
		p, err := parsePoint(at)
		if err != nil {
			return err
		}
		if err := draft.Place(p); err != nil {
			return err
		}
		if _, err := draft.AddProduct(product, ""); err != nil {
			return err
		}
	}
	for _, spec := range custom {
		at, rest, ok := strings.Cut(spec, "=")
		if !ok {
			return models.NewValidationError(fmt.Sprintf("tag %q must be X,Y=NAME", spec))
		}
		p, err := parsePoint(at)
		if err != nil {
			return err
		}
		parts := strings.SplitN(rest, ";", 3)
		for len(parts) < 3 {
			parts = append(parts, "")
		}
		if err := draft.Place(p); err != nil {
			return err
		}
		if _, err := draft.AddCustom(parts[0], parts[1], parts[2]); err != nil {
			return err
		}
	}

	post, err := c.app.Content.CreatePost(ctx, service.CreatePostInput{
		AuthorID:  actorID,
		Caption:   strings.TrimSpace(*caption),
		MediaURL:  mediaURL,
		MediaType: mediaKind,
		Tags:      draft.Tags(),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Posted!")
	printPost(c.out, post, actorID, c.now())
	return nil
}

func (c *cli) like(ctx context.Context, args []string) error {
	postID, err := oneArg(args, "post id")
	if err != nil {
		return err
	}
	actorID, err := c.actor()
	if err != nil {
		return err
	}
	post, err := c.app.Content.ToggleLike(ctx, postID, actorID)
	if err != nil {
		return err
	}
	if post == nil {
		return models.NewNotFoundError("Post", postID)
	}
	if post.LikedBy(actorID) {
		fmt.Fprintf(c.out, "Liked %s (%s)\n", post.ID, plural(post.LikeCount(), "like", "likes"))
	} else {
		fmt.Fprintf(c.out, "Unliked %s (%s)\n", post.ID, plural(post.LikeCount(), "like", "likes"))
	}
	return nil
}

func (c *cli) deletePost(ctx context.Context, args []string) error {
	postID, err := oneArg(args, "post id")
	if err != nil {
		return err
	}
	actorID, err := c.actor()
	if err != nil {
		return err
	}
	deleted, err := c.app.Content.DeletePost(ctx, postID, actorID)
	if err != nil {
		return err
	}
	if deleted {
		fmt.Fprintf(c.out, "Deleted %s\n", postID)
	} else {
		fmt.Fprintln(c.out, "Nothing deleted")
	}
	return nil
}

func (c *cli) feed(ctx context.Context, args []string) error {
	fs := c.flags("feed")
	limit := fs.Int("limit", 0, "show at most N posts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	posts, err := c.app.Content.Feed(ctx)
	if err != nil {
		return err
	}
	if *limit > 0 && len(posts) > *limit {
		posts = posts[:*limit]
	}
	printPosts(c.out, posts, c.viewer(), c.now())
	return nil
}

func (c *cli) posts(ctx context.Context, args []string) error {
	username, err := oneArg(args, "username")
	if err != nil {
		return err
	}
	u, err := c.resolveUser(ctx, username)
	if err != nil {
		return err
	}
	posts, err := c.app.Content.GetPostsByUser(ctx, u.ID)
	if err != nil {
		return err
	}
	printPosts(c.out, posts, c.viewer(), c.now())
	return nil
}

func (c *cli) follow(ctx context.Context, args []string) error {
	return c.edge(ctx, args, true)
}

func (c *cli) unfollow(ctx context.Context, args []string) error {
	return c.edge(ctx, args, false)
}

func (c *cli) edge(ctx context.Context, args []string, follow bool) error {
	username, err := oneArg(args, "username")
	if err != nil {
		return err
	}
	actorID, err := c.actor()
	if err != nil {
		return err
	}
	target, err := c.resolveUser(ctx, username)
	if err != nil {
		return err
	}

	var changed bool
	if follow {
		changed, err = c.app.Social.Follow(ctx, actorID, target.ID)
	} else {
		changed, err = c.app.Social.Unfollow(ctx, actorID, target.ID)
	}
	if err != nil {
		return err
	}
	switch {
	case follow && changed:
		fmt.Fprintf(c.out, "Following @%s\n", target.Username)
	case follow:
		fmt.Fprintf(c.out, "Not following @%s (already following or not allowed)\n", target.Username)
	default:
		fmt.Fprintf(c.out, "Unfollowed @%s\n", target.Username)
	}
	return nil
}

func (c *cli) followers(ctx context.Context, args []string) error {
	username, err := oneArg(args, "username")
	if err != nil {
		return err
	}
	u, err := c.resolveUser(ctx, username)
	if err != nil {
		return err
	}
	users, err := c.app.Social.GetFollowers(ctx, u.ID)
	if err != nil {
		return err
	}
	printUsers(c.out, users)
	return nil
}

func (c *cli) following(ctx context.Context, args []string) error {
	username, err := oneArg(args, "username")
	if err != nil {
		return err
	}
	u, err := c.resolveUser(ctx, username)
	if err != nil {
		return err
	}
	users, err := c.app.Social.GetFollowing(ctx, u.ID)
	if err != nil {
		return err
	}
	printUsers(c.out, users)
	return nil
}

func (c *cli) search(ctx context.Context, args []string) error {
	result, err := c.app.Search.Search(ctx, joinArgs(args))
	if err != nil {
		return err
	}
	if !result.Active {
		printPosts(c.out, result.Posts, c.viewer(), c.now())
		return nil
	}
	fmt.Fprintf(c.out, "People (%d)\n", len(result.Users))
	if len(result.Users) > 0 {
		printUsers(c.out, result.Users)
	}
	fmt.Fprintf(c.out, "\nPosts (%d)\n", len(result.Posts))
	if len(result.Posts) == 0 {
		fmt.Fprintf(c.out, "No results for %q\n", result.Query)
		return nil
	}
	printPosts(c.out, result.Posts, c.viewer(), c.now())
	return nil
}

func (c *cli) related(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return models.NewValidationError("expected a post id and a tag id")
	}
	view, err := c.app.Shop.Product(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s %s\n", view.Tag.ProductName, view.Tag.Price)
	fmt.Fprintf(c.out, "  tagged by @%s\n", view.Post.Username)
	if view.Link != "" {
		fmt.Fprintf(c.out, "  buy: %s\n", view.Link)
	} else {
		fmt.Fprintf(c.out, "  %s\n", service.ErrNoPurchaseLink.Message)
	}
	fmt.Fprintf(c.out, "\nAlso tagged in %s\n", plural(len(view.Related), "post", "posts"))
	for i := range view.Related {
		printPost(c.out, &view.Related[i], c.viewer(), c.now())
	}
	return nil
}

func (c *cli) catalog(_ context.Context, args []string) error {
	printProducts(c.out, c.app.Catalog.Filter(joinArgs(args)))
	return nil
}

func (c *cli) place(_ context.Context, args []string) error {
	fs := c.flags("place")
	x := fs.Float64("x", 0, "pointer x")
	y := fs.Float64("y", 0, "pointer y")
	var rect tagging.Rect
	fs.Float64Var(&rect.Left, "left", 0, "media left edge")
	fs.Float64Var(&rect.Top, "top", 0, "media top edge")
	fs.Float64Var(&rect.Width, "width", 0, "media rendered width")
	fs.Float64Var(&rect.Height, "height", 0, "media rendered height")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := tagging.PlaceFromPointer(*x, *y, rect)
	if err != nil {
		return err
	}
	anchor := tagging.PopupAnchor(models.ProductTag{X: p.X, Y: p.Y})
	fmt.Fprintf(c.out, "tag at (%.1f%%, %.1f%%), popup at (%.1f%%, %.1f%%)\n", p.X, p.Y, anchor.X, anchor.Y)
	return nil
}

func (c *cli) stats(ctx context.Context, _ []string) error {
	st, err := c.app.Store.Stats(ctx)
	if err != nil {
		return err
	}
	keys, err := c.app.Store.List(ctx)
	if err != nil {
		return err
	}
	users, err := c.app.Users.List(ctx)
	if err != nil {
		return err
	}
	posts, err := c.app.Content.Feed(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "driver:   %s\n", c.app.Config.StoreDriver)
	fmt.Fprintf(c.out, "keys:     %d (%s)\n", st.Keys, strings.Join(keys, ", "))
	fmt.Fprintf(c.out, "bytes:    %d\n", st.Bytes)
	fmt.Fprintf(c.out, "users:    %d\n", len(users))
	fmt.Fprintf(c.out, "posts:    %d\n", len(posts))
	fmt.Fprintf(c.out, "session:  %s\n", c.app.Session.State())
	fmt.Fprintf(c.out, "revision: %d\n", c.app.Hub.Revision())
	for _, name := range c.app.Flags.Names() {
		fmt.Fprintf(c.out, "flag %s: %t\n", name, c.app.Flags.Enabled(name, c.viewer()))
	}
	return nil
}
