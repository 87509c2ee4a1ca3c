package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"storefront/internal/app"
	"storefront/internal/domain/model"
	"storefront/internal/remote"

	"github.com/spf13/pflag"
)

type cli struct {
	sf  *app.Storefront
	out io.Writer
}

// =====================
// catalog
// =====================

func (c *cli) products(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("products", pflag.ContinueOnError)
	var f remote.ProductFilter
	fs.StringVar(&f.Category, "category", "", "category")
	fs.StringVar(&f.Q, "q", "", "name contains")
	fs.BoolVar(&f.Featured, "featured", false, "featured only")
	fs.StringVar(&f.Sort, "sort", "", "new|price_asc|price_desc")
	fs.IntVar(&f.Limit, "limit", 0, "max items")
	if err := fs.Parse(args); err != nil {
		return err
	}

	items, err := c.sf.Catalog().ListProducts(ctx, f)
	if err != nil {
		return err
	}
	c.printProducts(items)
	return nil
}

func (c *cli) featured(ctx context.Context) error {
	items, err := c.sf.Catalog().FeaturedProducts(ctx)
	if err != nil {
		return err
	}
	c.printProducts(items)
	return nil
}

func (c *cli) newArrivals(ctx context.Context) error {
	items, err := c.sf.Catalog().NewArrivals(ctx)
	if err != nil {
		return err
	}
	c.printProducts(items)
	return nil
}

func (c *cli) categories(ctx context.Context) error {
	rows, err := c.sf.Catalog().Categories(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tPRODUCTS")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%d\n", r.Category, r.Count)
	}
	return w.Flush()
}

func (c *cli) product(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: product <id>")
	}

	p, err := c.sf.Catalog().GetProduct(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s  %s\n%s\ncategory: %s  stock: %d\n\n", p.Name, p.Price.StringFixed(2), p.Description, p.Category, p.Stock)

	related, err := c.sf.Catalog().RelatedProducts(ctx, p.ID)
	if err != nil {
		return err
	}
	if len(related) > 0 {
		fmt.Fprintln(c.out, "related:")
		c.printProducts(related)
	}
	return nil
}

func (c *cli) printProducts(items []model.Product) {
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK")
	for _, p := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", p.ID, p.Name, p.Category, p.Price.StringFixed(2), p.Stock)
	}
	_ = w.Flush()
}

// =====================
// cart
// =====================

func (c *cli) cart(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"show"}
	}

	cart := c.sf.Cart()
	switch args[0] {
	case "show":
	case "add":
		if len(args) < 2 {
			return errors.New("usage: cart add <id> [qty]")
		}
		qty := int64(1)
		if len(args) > 2 {
			n, err := parseQuantity(args[2])
			if err != nil {
				return err
			}
			qty = n
		}
		p, err := c.sf.AddToCart(ctx, args[1], qty)
		if err != nil {
			return err
		}
		//在庫は表示だけ（カートでは制限しない）
		for _, it := range cart.Items() {
			if it.ProductID == p.ID && it.Quantity > p.Stock {
				fmt.Fprintf(c.out, "note: only %d of %s in stock\n", p.Stock, p.Name)
			}
		}
	case "remove":
		if len(args) != 2 {
			return errors.New("usage: cart remove <id>")
		}
		cart.RemoveItem(args[1])
	case "set":
		if len(args) != 3 {
			return errors.New("usage: cart set <id> <qty>")
		}
		n, err := parseQuantity(args[2])
		if err != nil {
			return err
		}
		cart.UpdateQuantity(args[1], n)
	case "clear":
		cart.ClearCart()
	default:
		return fmt.Errorf("unknown cart command %q", args[0])
	}

	items := cart.Items()
	if len(items) == 0 {
		fmt.Fprintln(c.out, "cart is empty")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tQTY\tPRICE\tSUBTOTAL")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", it.ProductID, it.Product.Name, it.Quantity, it.Product.Price.StringFixed(2), it.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(w, "\t\t%d\t\t%s\n", cart.TotalItems(), cart.TotalPrice().StringFixed(2))
	return w.Flush()
}

func parseQuantity(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q", s)
	}
	return n, nil
}

// =====================
// auth / profile
// =====================

func (c *cli) signUp(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: signup <email> <password>")
	}
	id, err := c.sf.Auth().SignUp(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "signed up as %s\n", id.Email)
	return nil
}

func (c *cli) signIn(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: signin <email> <password>")
	}
	if err := c.sf.Auth().SignIn(ctx, args[0], args[1]); err != nil {
		return err
	}

	//サインイン後のセッション確認に失敗するとUserはnilのまま
	u := c.sf.Auth().User()
	if u == nil {
		fmt.Fprintln(c.out, "signed in, but the session could not be loaded")
		return nil
	}
	fmt.Fprintf(c.out, "signed in as %s\n", u.Email)
	return nil
}

func (c *cli) signOut(ctx context.Context) error {
	err := c.sf.Auth().SignOut(ctx)
	fmt.Fprintln(c.out, "signed out")
	return err
}

func (c *cli) whoami() error {
	u := c.sf.Auth().User()
	if u == nil {
		fmt.Fprintln(c.out, "not signed in")
		return nil
	}
	fmt.Fprintf(c.out, "%s (%s)\n", u.Email, u.ID)
	return nil
}

func (c *cli) profile(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("profile", pflag.ContinueOnError)
	first := fs.String("first-name", "", "first name")
	last := fs.String("last-name", "", "last name")
	avatar := fs.String("avatar-url", "", "avatar url")
	phone := fs.String("phone", "", "phone")
	addr := addressFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	var patch model.ProfilePatch
	if fs.Changed("first-name") {
		patch.FirstName = first
	}
	if fs.Changed("last-name") {
		patch.LastName = last
	}
	if fs.Changed("avatar-url") {
		patch.AvatarURL = avatar
	}
	if fs.Changed("phone") {
		patch.Phone = phone
	}
	if a, ok := addr.value(fs); ok {
		patch.Address = &a
	}

	if !patch.IsEmpty() {
		if err := c.sf.Auth().UpdateProfile(ctx, patch); err != nil {
			return err
		}
	}

	u := c.sf.Auth().User()
	if u == nil {
		return app.ErrNotSignedIn
	}
	if u.Profile == nil {
		fmt.Fprintf(c.out, "%s has no profile\n", u.Email)
		return nil
	}

	p := u.Profile
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "email\t%s\n", u.Email)
	fmt.Fprintf(w, "first name\t%s\n", deref(p.FirstName))
	fmt.Fprintf(w, "last name\t%s\n", deref(p.LastName))
	fmt.Fprintf(w, "avatar\t%s\n", deref(p.AvatarURL))
	fmt.Fprintf(w, "phone\t%s\n", deref(p.Phone))
	if p.Address != nil {
		fmt.Fprintf(w, "address\t%s\n", formatAddress(*p.Address))
	}
	return w.Flush()
}

// =====================
// orders
// =====================

func (c *cli) checkout(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("checkout", pflag.ContinueOnError)
	addr := addressFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	//指定がなければプロフィールの住所
	a, ok := addr.value(fs)
	if !ok {
		a, ok = c.sf.DefaultShippingAddress()
	}
	if !ok {
		return errors.New("shipping address required (--street --city --state --zip --country)")
	}

	order, err := c.sf.Checkout(ctx, app.CheckoutInput{ShippingAddress: a})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "order %s placed: %d items, total %s\n", order.ID, len(order.Items), order.Total.StringFixed(2))
	return nil
}

func (c *cli) orders(ctx context.Context) error {
	orders, err := c.sf.OrderHistory(ctx)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Fprintln(c.out, "no orders yet")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tDATE\tSTATUS\tITEMS\tTOTAL")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", o.ID, o.CreatedAt.Format("2006-01-02"), o.Status, len(o.Items), o.Total.StringFixed(2))
	}
	return w.Flush()
}

// =====================
// helpers
// =====================

type addressFlagSet struct {
	street, city, state, zip, country *string
}

func addressFlags(fs *pflag.FlagSet) addressFlagSet {
	return addressFlagSet{
		street:  fs.String("street", "", "street"),
		city:    fs.String("city", "", "city"),
		state:   fs.String("state", "", "state"),
		zip:     fs.String("zip", "", "zip code"),
		country: fs.String("country", "", "country"),
	}
}

// どれか1つでも指定されていれば住所として返す
func (a addressFlagSet) value(fs *pflag.FlagSet) (model.ShippingAddress, bool) {
	changed := false
	for _, name := range []string{"street", "city", "state", "zip", "country"} {
		changed = changed || fs.Changed(name)
	}
	if !changed {
		return model.ShippingAddress{}, false
	}
	return model.ShippingAddress{
		Street:  *a.street,
		City:    *a.city,
		State:   *a.state,
		ZipCode: *a.zip,
		Country: *a.country,
	}, true
}

func formatAddress(a model.ShippingAddress) string {
	return fmt.Sprintf("%s, %s, %s %s, %s", a.Street, a.City, a.State, a.ZipCode, a.Country)
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
